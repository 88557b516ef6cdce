package allegrosync

import (
	"encoding/json"
	"errors"
	"time"
)

const oauthStateMaxAge = 15 * time.Minute

type oauthState struct {
	BusinessId string `json:"businessId"`
	UserId     int    `json:"userId"`
	IssuedAt   int64  `json:"issuedAt"`
}

// encodeOAuthState packs the tenant and user into the OAuth state parameter so
// the callback can be tied back to whoever started the flow. The state is
// sealed with the token cipher: the unauthenticated callback must not accept a
// state anyone but this service could have minted.
func (s *Service) encodeOAuthState(businessId string, userId int) (string, error) {
	raw, err := json.Marshal(oauthState{
		BusinessId: businessId,
		UserId:     userId,
		IssuedAt:   s.now().Unix(),
	})
	if err != nil {
		return "", err
	}
	return s.cipher.Encrypt(string(raw))
}

// decodeOAuthState opens the state parameter and rejects forged, tampered and
// stale values.
func (s *Service) decodeOAuthState(state string) (businessId string, userId int, err error) {
	plain, err := s.cipher.Decrypt(state)
	if err != nil {
		return "", 0, errors.New("invalid state parameter")
	}
	var parsed oauthState
	if err := json.Unmarshal([]byte(plain), &parsed); err != nil {
		return "", 0, errors.New("invalid state parameter")
	}
	if parsed.BusinessId == "" || parsed.UserId == 0 {
		return "", 0, errors.New("invalid state parameter")
	}
	now := s.now()
	issued := time.Unix(parsed.IssuedAt, 0)
	if now.Sub(issued) > oauthStateMaxAge || issued.After(now.Add(time.Minute)) {
		return "", 0, errors.New("state parameter expired")
	}
	return parsed.BusinessId, parsed.UserId, nil
}

// AuthorizeURL builds the provider consent URL for a connect request.
func (s *Service) AuthorizeURL(businessId string, userId int) (string, error) {
	state, err := s.encodeOAuthState(businessId, userId)
	if err != nil {
		return "", err
	}
	return s.api.AuthorizeURL(state), nil
}
