package db

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/taskdeck/taskdeck/internal/config"
)

// ConnString builds the Postgres connection string from config.
func ConnString(conf *config.Config) string {
	str := fmt.Sprintf("postgresql://%v:%v@%v:%v/%v", conf.DB_USERNAME, conf.DB_PASSWORD, conf.DB_HOST, conf.DB_PORT, conf.DB_NAME)
	if conf.DISABLE_TLS == "true" {
		str = str + "?sslmode=disable"
	}
	return str
}

func NewConn(conf *config.Config) *sqlx.DB {
	slog.Info("Connecting to database")

	db, err := sqlx.Open("postgres", ConnString(conf))
	if err != nil {
		log.Fatal(err)
	}
	err = db.Ping()
	if err != nil {
		log.Fatalln("Unable to connect to database", err.Error())
	}

	slog.Info("Connected to database")

	return db
}
