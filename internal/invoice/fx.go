package invoice

import (
	"github.com/inmoflow/inmoflow/internal/invoice/fingerprint"
	"github.com/inmoflow/inmoflow/internal/invoice/sequence"
	"github.com/inmoflow/inmoflow/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(sequence.NewAllocator),
	fx.Provide(fingerprint.NewChainer),
	fx.Provide(service.NewService),
)
