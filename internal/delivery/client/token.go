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

package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrNoToken is returned when no way to obtain a token is configured.
var ErrNoToken = errors.New("no access token configured")

// TokenSource yields the retail access token. It is sent both as a bearer
// header and as the tokenId body field.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// CredentialsConfig configures the OAuth2 client credentials grant.
type CredentialsConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type oauthTokenSource struct {
	ts oauth2.TokenSource
}

// NewCredentialsTokenSource fetches tokens with the client credentials
// grant. Tokens are cached until they expire.
func NewCredentialsTokenSource(ctx context.Context, cfg CredentialsConfig) (TokenSource, error) {
	if cfg.TokenURL == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: token url and client id are required", ErrNoToken)
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}
	return &oauthTokenSource{ts: oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx))}, nil
}

// Token implements TokenSource.
func (o *oauthTokenSource) Token(context.Context) (string, error) {
	tok, err := o.ts.Token()
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	return tok.AccessToken, nil
}

// NewTokenSource picks a static token when one is set, otherwise client
// credentials.
func NewTokenSource(ctx context.Context, static string, cfg CredentialsConfig) (TokenSource, error) {
	if static != "" {
		return StaticToken(static), nil
	}
	if cfg.TokenURL == "" {
		return nil, ErrNoToken
	}
	return NewCredentialsTokenSource(ctx, cfg)
}
