//go:build cgo
// +build cgo

package mysql_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/herald/persistence"
	"github.com/dogmatiq/herald/persistence/internal/providertest"
	heraldsql "github.com/dogmatiq/herald/persistence/sqlpersistence"
	. "github.com/dogmatiq/herald/persistence/sqlpersistence/mysql"
	"github.com/dogmatiq/sqltest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type driver", func() {
	var (
		database *sqltest.Database
		db       *sql.DB
	)

	for _, pair := range sqltest.CompatiblePairs(sqltest.MySQL, sqltest.MariaDB) {
		pair := pair // capture loop variable

		providertest.Declare(
			func(ctx context.Context, in providertest.In) providertest.Out {
				var err error
				database, err = sqltest.NewDatabase(ctx, pair.Driver, pair.Product)
				Expect(err).ShouldNot(HaveOccurred())

				db, err = database.Open()
				Expect(err).ShouldNot(HaveOccurred())

				err = Driver.CreateSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				return providertest.Out{
					NewProvider: func() (persistence.Provider, func()) {
						return &heraldsql.Provider{
							DB:     db,
							Driver: Driver,
						}, nil
					},
					IsShared: true,
				}
			},
			func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()

				err := Driver.DropSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				err = database.Close()
				Expect(err).ShouldNot(HaveOccurred())
			},
		)
	}
})
