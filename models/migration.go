package models

import (
	"log"

	"github.com/fakturo/invoices_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Customer{},
		&Product{},
		&SalesInvoice{}, &SalesInvoiceDetail{},
		&Integration{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
