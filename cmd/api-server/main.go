// Command api-server serves the MyShop order and product API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	myshop "github.com/xenking/myshop/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := myshop.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		if cfg.RateLimit.TrustProxy {
			lg.Info("Rate limiting by forwarded client address")
		}
		return myshop.Run(ctx, lg, m, cfg)
	})
}
