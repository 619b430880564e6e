// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/assertion"
	"github.com/manyiweb/api-delivery/internal/delivery/client"
	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/internal/delivery/metrics"
	"github.com/manyiweb/api-delivery/internal/delivery/payload"
	"github.com/manyiweb/api-delivery/internal/delivery/repository"
	"github.com/manyiweb/api-delivery/pkg/logger"
)

// EnvOptions are the optional collaborators of NewEnv.
type EnvOptions struct {
	Metrics *metrics.Collector
	// Repo enables DB checks when the configuration allows them.
	Repo   repository.DockOrderRepository
	Logger *zap.Logger
	// Now overrides the clock used for generated order ids.
	Now func() time.Time
}

// NewEnv wires the API wrappers and the asserter for cfg over c. A
// missing token configuration is not an error: only the POS scenarios
// need one and they fail with client.ErrNoToken.
func NewEnv(ctx context.Context, cfg *config.Config, c *client.Client, opts EnvOptions) (*Env, error) {
	if cfg == nil || c == nil {
		return nil, fmt.Errorf("scenario env: config and client are required")
	}
	lg := opts.Logger
	if lg == nil {
		lg = logger.GetLogger()
	}

	tokens, err := client.NewTokenSource(ctx, cfg.Auth.Token, client.CredentialsConfig{
		TokenURL:     cfg.Auth.TokenURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Scopes:       cfg.Auth.Scopes,
	})
	switch {
	case errors.Is(err, client.ErrNoToken):
		lg.Warn("No access token configured, POS scenarios will fail")
		tokens = nil
	case err != nil:
		return nil, err
	}

	deps := api.Deps{
		Client:    c,
		Loader:    fixture.NewLoader(cfg.DataDir, cfg.Env),
		Tokens:    tokens,
		Endpoints: cfg.Endpoints,
		Logger:    lg,
	}

	var builderOpts []payload.Option
	if opts.Now != nil {
		builderOpts = append(builderOpts, payload.WithClock(opts.Now))
	}
	builder := payload.NewBuilder(payload.Merchant{
		DeveloperID: cfg.Merchant.DeveloperID,
		EPoiID:      cfg.Merchant.EPoiID,
		Sign:        cfg.Merchant.Sign,
	}, builderOpts...)

	asserter := assertion.New(assertion.Defaults{
		APITimeout:  cfg.APIPollTimeout(),
		APIInterval: cfg.APIPollInterval(),
		DBTimeout:   cfg.DBPollTimeout(),
		DBInterval:  cfg.DBPollInterval(),
		MaxPages:    cfg.Poll.MaxPages,
		PageSize:    cfg.Poll.PageSize,
	}, assertion.WithMetrics(opts.Metrics), assertion.WithLogger(lg))

	env := &Env{
		Config:    cfg,
		Callbacks: api.NewCallbacks(deps, builder, cfg.Merchant.SignSecret),
		Retail:    api.NewRetail(deps),
		Invoices:  api.NewInvoices(deps),
		Orders:    api.NewOrders(deps, cfg.Merchant.UserID, cfg.Merchant.CompanyID),
		Asserter:  asserter,
		Logger:    lg,
	}
	if opts.Repo != nil && cfg.DBChecksEnabled() {
		env.Repo = opts.Repo
	}
	return env, nil
}
