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

// Package config loads and validates the harness configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	pkgconfig "github.com/manyiweb/api-delivery/pkg/config"
	"github.com/manyiweb/api-delivery/pkg/resilience"
	"github.com/manyiweb/api-delivery/pkg/tracing"
)

// Environment names.
const (
	EnvTest = "test"
	EnvFAT  = "fat"
	EnvUAT  = "uat"
)

// Config is the full harness configuration.
type Config struct {
	Env     string `mapstructure:"env" validate:"oneof=test fat uat"`
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	UATURL  string `mapstructure:"uat_url" validate:"omitempty,url"`
	DataDir string `mapstructure:"data_dir" validate:"required"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Merchant  MerchantConfig  `mapstructure:"merchant"`
	DB        DBConfig        `mapstructure:"db"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Poll      PollConfig      `mapstructure:"poll"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Invoice   InvoiceConfig   `mapstructure:"invoice"`
	Log       LogConfig       `mapstructure:"log"`
	Report    ReportConfig    `mapstructure:"report"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Expect    ExpectConfig    `mapstructure:"expect"`
}

// AuthConfig selects how the retail access token is obtained. A static
// token wins over client credentials.
type AuthConfig struct {
	Token        string   `mapstructure:"token"`
	TokenURL     string   `mapstructure:"token_url" validate:"omitempty,url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// MerchantConfig carries the delivery platform merchant identity.
type MerchantConfig struct {
	DeveloperID string `mapstructure:"developer_id"`
	EPoiID      string `mapstructure:"epoi_id"`
	Sign        string `mapstructure:"sign"`
	// SignSecret switches from the static sign to a computed one.
	SignSecret string `mapstructure:"sign_secret"`
	UserID     string `mapstructure:"user_id"`
	CompanyID  string `mapstructure:"company_id"`
}

// DBConfig describes the MySQL connection used by DB assertions.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required_if=Enabled true"`
	Charset  string `mapstructure:"charset"`
}

// HTTPConfig controls the outbound client. Durations are in seconds.
type HTTPConfig struct {
	Timeout       int    `mapstructure:"timeout" validate:"min=1"`
	RetryTimes    int    `mapstructure:"retry_times" validate:"min=1"`
	RetryInterval int    `mapstructure:"retry_interval" validate:"min=0"`
	RetryStrategy string `mapstructure:"retry_strategy" validate:"omitempty,oneof=fixed linear exponential none FIXED LINEAR EXPONENTIAL NONE"`
}

// PollConfig holds eventual consistency timings in seconds.
type PollConfig struct {
	DefaultTimeout int `mapstructure:"default_timeout" validate:"min=1"`
	APITimeout     int `mapstructure:"api_timeout" validate:"min=1"`
	APIInterval    int `mapstructure:"api_interval" validate:"min=1"`
	DBInterval     int `mapstructure:"db_interval" validate:"min=1"`
	MaxPages       int `mapstructure:"max_pages" validate:"min=1"`
	PageSize       int `mapstructure:"page_size" validate:"min=1"`
	MaxConcurrency int `mapstructure:"max_concurrency" validate:"min=1"`
}

// EndpointsConfig lists every remote path relative to the base URL.
type EndpointsConfig struct {
	PushCallback          string `mapstructure:"push_callback"`
	CancelCallback        string `mapstructure:"cancel_callback"`
	RefundCallback        string `mapstructure:"refund_callback"`
	PartialRefundCallback string `mapstructure:"partial_refund_callback"`

	ClearCart           string `mapstructure:"clear_cart"`
	AddCartItem         string `mapstructure:"add_cart_item"`
	AddOrder            string `mapstructure:"add_order"`
	CashPay             string `mapstructure:"cash_pay"`
	ServiceGuide        string `mapstructure:"service_guide"`
	CustomDiscount      string `mapstructure:"custom_discount"`
	CartDetail          string `mapstructure:"cart_detail"`
	SystemPayType       string `mapstructure:"system_pay_type"`
	PromotionPlan       string `mapstructure:"promotion_plan"`
	GiftList            string `mapstructure:"gift_list"`
	GiftSelection       string `mapstructure:"gift_selection"`
	CardOptions         string `mapstructure:"card_options"`
	CardRechargeScheme  string `mapstructure:"card_recharge_scheme"`
	CardRechargeOptions string `mapstructure:"card_recharge_options"`
	CardTopUp           string `mapstructure:"card_top_up"`
	CardTopUpRecords    string `mapstructure:"card_top_up_records"`
	CardRefund          string `mapstructure:"card_refund"`
	AddMember           string `mapstructure:"add_member"`
	IntegralPay         string `mapstructure:"integral_pay"`
	MCardPay            string `mapstructure:"mcard_pay"`
	CardBag             string `mapstructure:"card_bag"`
	EntityCardPreCalc   string `mapstructure:"entity_card_pre_calc"`
	EntityCardPay       string `mapstructure:"entity_card_pay"`

	OrderList   string `mapstructure:"order_list"`
	OrderDetail string `mapstructure:"order_detail"`

	InvoiceApply    string `mapstructure:"invoice_apply"`
	InvoiceRefresh  string `mapstructure:"invoice_refresh"`
	InvoiceDetail   string `mapstructure:"invoice_detail"`
	InvoiceRedPunch string `mapstructure:"invoice_red_punch"`
}

// InvoiceConfig picks the order the invoice suite works on.
type InvoiceConfig struct {
	OrderID        string `mapstructure:"order_id"`
	OrderRemark    string `mapstructure:"order_remark"`
	ExpectedStatus string `mapstructure:"expected_status"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Dir   string `mapstructure:"dir"`
}

// ReportConfig says where run artifacts go.
type ReportConfig struct {
	Dir        string `mapstructure:"dir"`
	ResultsDir string `mapstructure:"results_dir"`
}

// NotifyConfig configures the result notification channels.
type NotifyConfig struct {
	Channels        []string   `mapstructure:"channels" validate:"dive,oneof=wechat dingtalk email"`
	WeChatWebhook   string     `mapstructure:"wechat_webhook" validate:"omitempty,url"`
	DingTalkWebhook string     `mapstructure:"dingtalk_webhook" validate:"omitempty,url"`
	SMTP            SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig configures the e-mail notifier.
type SMTPConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from" validate:"omitempty,email"`
	To       []string `mapstructure:"to" validate:"dive,email"`
}

// ExpectConfig holds business values that differ between deployments.
type ExpectConfig struct {
	// CancelledStatus is the order status reported after a cancel
	// callback. Empty skips the status check.
	CancelledStatus string `mapstructure:"cancelled_status"`
}

// legacyEnv maps config keys to the plain variable names older runners export.
var legacyEnv = map[string][]string{
	"env":                   {"ENV"},
	"base_url":              {"BASE_URL"},
	"uat_url":               {"UAT_URL"},
	"db.host":               {"DB_HOST"},
	"db.port":               {"DB_PORT"},
	"db.user":               {"DB_USER"},
	"db.password":           {"DB_PASSWORD"},
	"db.name":               {"DB_NAME"},
	"db.charset":            {"DB_CHARSET"},
	"notify.wechat_webhook": {"NOTIFY_WECHAT_WEBHOOK", "WECHAT_WEBHOOK"},
	"merchant.developer_id": {"MERCHANT_DEVELOPER_ID", "DEVELOPER_ID"},
	"merchant.epoi_id":      {"MERCHANT_EPOI_ID", "E_POI_ID"},
	"merchant.sign":         {"MERCHANT_SIGN", "SIGN"},
	"poll.default_timeout":  {"POLL_DEFAULT_TIMEOUT", "DEFAULT_TIMEOUT"},
	"http.retry_times":      {"HTTP_RETRY_TIMES", "RETRY_TIMES"},
	"http.retry_interval":   {"HTTP_RETRY_INTERVAL", "RETRY_INTERVAL"},
	"log.level":             {"LOG_LEVEL"},
	"log.dir":               {"LOG_DIR"},
	"invoice.order_id":      {"INVOICE_ORDER_ID", "ORDER_ID"},
	"invoice.order_remark":  {"INVOICE_ORDER_REMARK"},
	"auth.token":            {"AUTH_TOKEN", "ACCESS_TOKEN"},
}

// SetDefaults registers every default on m.
func SetDefaults(m *pkgconfig.Manager) {
	m.SetDefault("env", EnvTest)
	m.SetDefault("base_url", "http://fat-pos.reabam.com:60030/api")
	m.SetDefault("uat_url", "https://pos.reabam.com:60030/api")
	m.SetDefault("data_dir", "data")

	m.SetDefault("auth.token", "")
	m.SetDefault("auth.token_url", "")
	m.SetDefault("auth.client_id", "")
	m.SetDefault("auth.client_secret", "")
	m.SetDefault("auth.scopes", []string{})

	m.SetDefault("merchant.developer_id", "106825")
	m.SetDefault("merchant.epoi_id", "")
	m.SetDefault("merchant.sign", "")
	m.SetDefault("merchant.sign_secret", "")
	m.SetDefault("merchant.user_id", "f57342198c3147178e5b3ffa63f97a65")
	m.SetDefault("merchant.company_id", "5ad586a8721e49518998aedef9fd3b5c")

	m.SetDefault("db.enabled", false)
	m.SetDefault("db.host", "")
	m.SetDefault("db.port", 3306)
	m.SetDefault("db.user", "")
	m.SetDefault("db.password", "")
	m.SetDefault("db.name", "")
	m.SetDefault("db.charset", "utf8mb4")

	m.SetDefault("http.timeout", 10)
	m.SetDefault("http.retry_times", 3)
	m.SetDefault("http.retry_interval", 2)
	m.SetDefault("http.retry_strategy", "fixed")

	m.SetDefault("poll.default_timeout", 10)
	m.SetDefault("poll.api_timeout", 30)
	m.SetDefault("poll.api_interval", 2)
	m.SetDefault("poll.db_interval", 1)
	m.SetDefault("poll.max_pages", 3)
	m.SetDefault("poll.page_size", 20)
	m.SetDefault("poll.max_concurrency", 10)

	for key, path := range DefaultEndpoints() {
		m.SetDefault("endpoints."+key, path)
	}

	m.SetDefault("invoice.order_id", "")
	m.SetDefault("invoice.order_remark", "")
	m.SetDefault("invoice.expected_status", "INVOICED")

	m.SetDefault("log.level", "info")
	m.SetDefault("log.dir", "logs")

	m.SetDefault("report.dir", "reports")
	m.SetDefault("report.results_dir", "reports/allure-results")

	m.SetDefault("notify.channels", []string{})
	m.SetDefault("notify.wechat_webhook", "")
	m.SetDefault("notify.dingtalk_webhook", "")
	m.SetDefault("notify.smtp.host", "")
	m.SetDefault("notify.smtp.port", 587)
	m.SetDefault("notify.smtp.user", "")
	m.SetDefault("notify.smtp.password", "")
	m.SetDefault("notify.smtp.from", "")
	m.SetDefault("notify.smtp.to", []string{})

	tc := tracing.DefaultConfig()
	m.SetDefault("tracing.enabled", tc.Enabled)
	m.SetDefault("tracing.service_name", tc.ServiceName)
	m.SetDefault("tracing.sample_rate", tc.SampleRate)
	m.SetDefault("tracing.exporter.type", tc.Exporter.Type)
	m.SetDefault("tracing.exporter.endpoint", "")
	m.SetDefault("tracing.exporter.insecure", false)
	m.SetDefault("tracing.exporter.timeout", tc.Exporter.Timeout)

	m.SetDefault("expect.cancelled_status", "")
}

// DefaultEndpoints returns the known remote paths keyed by config name.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		"push_callback":           "/dock/mt/v2/order/callback",
		"cancel_callback":         "/dock/mt/v2/order/cancel/callback",
		"refund_callback":         "/reabam-external-access/dock/mt/v2/order/refund/callback",
		"partial_refund_callback": "/mt/v2/order/partial/refund/callback",

		"clear_cart":            "/retail-shoppingcart-front/app/shopping/cart/clearUpShopCartProduct",
		"add_cart_item":         "/retail-shoppingcart-front/app/shopping/cart/item/addShopCartItem",
		"add_order":             "/retail-order-front/app/sales/order/add",
		"cash_pay":              "/retail-pay-front/app/pay/CashPay",
		"service_guide":         "/retail-shoppingcart-front/app/shopping/cart/updateItemStaff",
		"custom_discount":       "/retail-shoppingcart-front/app/shopping/cart/updateShopCartCustomDiscount",
		"cart_detail":           "/retail-shoppingcart-front/app/shopping/cart/getShoppingCartDetail",
		"system_pay_type":       "/reabam-retail-pay-front/retail-pay-front/appc/custompay/systemPayType",
		"promotion_plan":        "/retail-shoppingcart-front/app/shopping/cart/updateShopCartPromotionPlan",
		"gift_list":             "/retail-shoppingcart-front/app/shopping/cart/shopCartGiftList",
		"gift_selection":        "/retail-shoppingcart-front/app/shopping/cart/shopCartGiftSelection",
		"card_options":          "/retail/app/Business/Member/CardOptions",
		"card_recharge_scheme":  "/retail/app/Business/Member/CardOptions/GiveItem",
		"card_recharge_options": "/retail/app/Business/Member/CardRechargeOptions",
		"card_top_up":           "/retail/app/Business/Member/CardTopUp",
		"card_top_up_records":   "/mem/card/amount/records",
		"card_refund":           "/retail/app/Business/Member/CardTop/refund",
		"add_member":            "/retail-shoppingcart-front/app/shopping/cart/updateShopCartMemberInfo",
		"integral_pay":          "/retail-pay-front/app/pay/IntegralPay",
		"mcard_pay":             "/retail-pay-front/app/pay/MCardPay",
		"card_bag":              "/reabam-retail-fast/app/Business/member/card_bag",
		"entity_card_pre_calc":  "/retail-shoppingcart-front/app/shopping/cart/entityCard/shopCartEntityCardPreCalculate",
		"entity_card_pay":       "/retail-pay-front/app/pay/EntityCard",

		"order_list":   "/retail-order-front/app/Business/Order/Dock/List",
		"order_detail": "/retail-order-front/app/Business/Order/Dock/Detail",

		"invoice_apply":     "/hr/retail/invoice/batchApply",
		"invoice_refresh":   "/hr/retail/invoice/refreshStatus",
		"invoice_detail":    "/hr/retail/invoice/detail",
		"invoice_red_punch": "/hr/retail/invoice/redPunch",
	}
}

// Load reads configuration from dir. The environment file is chosen from
// the ENV variable before the layers are merged.
func Load(dir string) (*Config, *pkgconfig.Manager, error) {
	opts := pkgconfig.DefaultOptions()
	opts.WorkDir = dir
	opts.EnvironmentName = strings.ToLower(strings.TrimSpace(os.Getenv("ENV")))

	m := pkgconfig.NewManager(opts)
	SetDefaults(m)
	for key, names := range legacyEnv {
		if err := m.BindEnv(key, names...); err != nil {
			return nil, nil, err
		}
	}
	if err := m.Load(); err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	if err := m.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, m, nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := resilience.ParseStrategy(c.HTTP.RetryStrategy); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// APIBaseURL returns the base URL for the selected environment.
func (c *Config) APIBaseURL() string {
	if c.Env == EnvUAT && c.UATURL != "" {
		return strings.TrimRight(c.UATURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// DBChecksEnabled reports whether DB row assertions run. Only FAT exposes
// its database to the harness.
func (c *Config) DBChecksEnabled() bool {
	return c.DB.Enabled && c.Env == EnvFAT
}

// RetryPolicy converts the HTTP retry settings.
func (c *Config) RetryPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.Attempts = c.HTTP.RetryTimes
	p.Interval = seconds(c.HTTP.RetryInterval)
	if s, err := resilience.ParseStrategy(c.HTTP.RetryStrategy); err == nil {
		p.Strategy = s
	}
	return p
}

// HTTPTimeout is the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration { return seconds(c.HTTP.Timeout) }

// APIPollTimeout is max(default_timeout, api_timeout).
func (c *Config) APIPollTimeout() time.Duration {
	t := c.Poll.APITimeout
	if c.Poll.DefaultTimeout > t {
		t = c.Poll.DefaultTimeout
	}
	return seconds(t)
}

// APIPollInterval is the pause between list/detail rounds.
func (c *Config) APIPollInterval() time.Duration { return seconds(c.Poll.APIInterval) }

// DBPollTimeout is the default DB assertion timeout.
func (c *Config) DBPollTimeout() time.Duration { return seconds(c.Poll.DefaultTimeout) }

// DBPollInterval is the pause between DB queries.
func (c *Config) DBPollInterval() time.Duration { return seconds(c.Poll.DBInterval) }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
