package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/storage"
	"github.com/papercomputeco/mentor/pkg/storage/postgres"
	testutils "github.com/papercomputeco/mentor/pkg/utils/test"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("MENTOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("MENTOR_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	testutils.DriverBehaviors(func() storage.Driver {
		ctx := context.Background()
		driver, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		db := driver.Driver.DB()
		for _, table := range []string{"notification_seen", "stage_progress", "chat_messages"} {
			_, err := db.ExecContext(ctx, "TRUNCATE "+table)
			Expect(err).NotTo(HaveOccurred())
		}
		return driver
	})
})
