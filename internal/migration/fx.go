package migration

import (
	auditdomain "github.com/inmoflow/inmoflow/internal/audit/domain"
	"github.com/inmoflow/inmoflow/internal/config"
	contractdomain "github.com/inmoflow/inmoflow/internal/contract/domain"
	invoicedomain "github.com/inmoflow/inmoflow/internal/invoice/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Non-postgres deployments (sqlite dev mode, mysql) fall back to
		// gorm's schema sync.
		return conn.AutoMigrate(
			&invoicedomain.Invoice{},
			&invoicedomain.InvoiceItem{},
			&invoicedomain.InvoiceSequence{},
			&contractdomain.Contract{},
			&auditdomain.AuditLog{},
		)
	}),
)
