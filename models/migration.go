package models

import (
	"log"

	"bitbucket.org/partsadmin/parts_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Category{},
		&PartIncoming{}, &PartLocation{}, &PartUsage{},
		&ActionAudit{}, &AccessLog{},
		&Image{}, &Document{}, &MapSpot{},
		&DocumentTemplate{}, &GeneratedDocument{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
