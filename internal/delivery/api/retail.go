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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/fixture"
	"github.com/manyiweb/api-delivery/internal/delivery/jsontree"
)

// Retail template sections.
const (
	SectionClearCart              = "clearShoppingCart"
	SectionAddCartItem            = "addShoppingCartItem"
	SectionAddCartItemForDiscount = "addShoppingCartItemForDiscount"
	SectionAddOrder               = "addOrder"
	SectionCashPay                = "cashPay"
	SectionServiceGuide           = "addServiceGuide"
	SectionCartDetail             = "getShoppingCartDetail"
	SectionDiscountAmount         = "updateShoppingcartCustomDiscountForAmount"
	SectionDiscountRate           = "updateShoppingcartCustomDiscountForRate"
	SectionSystemPayType          = "getSystemPayType"
	SectionPromotionFullDiscount  = "updateShopCartPromotionPlanForFullDiscount"
	SectionPromotionFullSend      = "updateShopCartPromotionPlanForFullSend"
	SectionPromotionFullReduction = "updateShopCartPromotionPlanForFullReduction"
	SectionGiftList               = "getShoppingcartGiftList"
	SectionGiftSelection          = "selectShoppingcartGift"
	SectionCardOptions            = "getCardCardOptions"
	SectionCardRechargeScheme     = "GiveItem"
	SectionCardRechargeOptions    = "getCardRechargeOptions"
	SectionCardTopUp              = "cardTopUp"
	SectionCardTopUpRecords       = "queryCardTopUpRecord"
	SectionCardRefund             = "cardRefund"
	SectionAddMember              = "addMember"
	SectionIntegralPay            = "integralPay"
	SectionMCardPay               = "McardPay"
	SectionCardBag                = "getCardBag"
	SectionEntityCardPreCalculate = "shopCartEntityCardPreCalculate"
	SectionEntityCardPay          = "entityCardPay"
)

// Pay type codes used by add order and the system pay type lookup.
const (
	PayTypeCash       = "cashPay"
	PayTypeIntegral   = "IntegralPay"
	PayTypeMCard      = "MCardPay"
	PayTypeEntityCard = "EntityCard"
)

// Order types accepted by cash pay.
const (
	OrderTypeOrder = "order"
	OrderTypeCard  = "card"
)

// defaultGiftQuantity applies when the gift list omits quantity.
const defaultGiftQuantity = 2

// ErrNoUsableCard is returned when no entity card covers the amount.
var ErrNoUsableCard = errors.New("无可抵扣完金额的实体卡")

// ParamOptions are the dynamic fields merged into a retail section.
type ParamOptions struct {
	OrderID         string
	ActualPayAmount json.Number
}

// Retail wraps the cart, order and payment services.
type Retail struct {
	Deps
}

// NewRetail returns the retail wrappers.
func NewRetail(deps Deps) *Retail {
	return &Retail{Deps: deps}
}

// BuildParams loads section from the retail template and fills the token
// and the given dynamic fields. Cash and integral pay sections also carry
// the amount as payAmount and as the guest payment.
func (r *Retail) BuildParams(section, token string, opts ParamOptions) (map[string]any, error) {
	body, err := r.Loader.Section(fixture.RetailFile, section)
	if err != nil {
		return nil, fmt.Errorf("缺少或无效的配置段: %q: %w", section, err)
	}

	if section == SectionCashPay || section == SectionIntegralPay {
		body["payAmount"] = amountValue(opts.ActualPayAmount)
		if err := setOffline(body, "guestPayment", amountValue(opts.ActualPayAmount)); err != nil {
			return nil, fmt.Errorf("section %q: %w", section, err)
		}
	}

	body["tokenId"] = token
	if opts.ActualPayAmount != "" {
		body["actualPayAmount"] = opts.ActualPayAmount
	}
	if opts.OrderID != "" {
		body["orderId"] = opts.OrderID
	}
	return body, nil
}

func amountValue(n json.Number) any {
	if n == "" {
		return nil
	}
	return n
}

func setOffline(body map[string]any, key string, value any) error {
	offline, ok := body["offlinePayParameter"].(map[string]any)
	if !ok {
		return fmt.Errorf("offlinePayParameter must be a mapping, got %T", body["offlinePayParameter"])
	}
	offline[key] = value
	return nil
}

// call builds section, lets mutate adjust it and posts it to endpoint.
func (r *Retail) call(ctx context.Context, name, endpoint, section string, opts ParamOptions, mutate func(map[string]any) error) (map[string]any, error) {
	token, err := r.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	body, err := r.BuildParams(section, token, opts)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		if err := mutate(body); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return r.postAuthed(ctx, name, endpoint, body, token)
}

// ClearCart empties the shopping cart.
func (r *Retail) ClearCart(ctx context.Context) (map[string]any, error) {
	return r.call(ctx, "清空购物车", r.Endpoints.ClearCart, SectionClearCart, ParamOptions{}, nil)
}

// AddCartItem adds the items of section, SectionAddCartItem when empty.
func (r *Retail) AddCartItem(ctx context.Context, section string) (map[string]any, error) {
	if section == "" {
		section = SectionAddCartItem
	}
	return r.call(ctx, "添加购物车", r.Endpoints.AddCartItem, section, ParamOptions{}, nil)
}

// AddServiceGuide assigns the sales guide to the cart.
func (r *Retail) AddServiceGuide(ctx context.Context) (map[string]any, error) {
	return r.call(ctx, "添加服务导购", r.Endpoints.ServiceGuide, SectionServiceGuide, ParamOptions{}, nil)
}

// CartDetail returns the cart.
func (r *Retail) CartDetail(ctx context.Context) (map[string]any, error) {
	return r.call(ctx, "获取购物车详情", r.Endpoints.CartDetail, SectionCartDetail, ParamOptions{}, nil)
}

// CustomDiscount applies a whole-order discount, by amount when section is
// empty.
func (r *Retail) CustomDiscount(ctx context.Context, section string) (map[string]any, error) {
	if section == "" {
		section = SectionDiscountAmount
	}
	return r.call(ctx, "新增优惠", r.Endpoints.CustomDiscount, section, ParamOptions{}, nil)
}

// PromotionPlan switches the cart to the promotion plan of section.
func (r *Retail) PromotionPlan(ctx context.Context, section string) (map[string]any, error) {
	return r.call(ctx, "更新购物车优惠计划", r.Endpoints.PromotionPlan, section, ParamOptions{}, nil)
}

// SystemPayType returns the amount to pay with payType, cash when empty.
func (r *Retail) SystemPayType(ctx context.Context, payType string) (json.Number, map[string]any, error) {
	if payType == "" {
		payType = PayTypeCash
	}
	body, err := r.call(ctx, "获取支付金额", r.Endpoints.SystemPayType, SectionSystemPayType, ParamOptions{},
		func(b map[string]any) error {
			b["code"] = payType
			return nil
		})
	if err != nil {
		return "", nil, err
	}
	amount, err := numberAt(body, "data", "itemsAmountActuallyPaid")
	if err != nil {
		return "", body, fmt.Errorf("system pay type: %w", err)
	}
	return amount, body, nil
}

// AddOrder turns the cart into an order paid with payType and returns the
// new order id.
func (r *Retail) AddOrder(ctx context.Context, amount json.Number, payType string) (string, map[string]any, error) {
	body, err := r.call(ctx, "新增订单", r.Endpoints.AddOrder, SectionAddOrder, ParamOptions{ActualPayAmount: amount},
		func(b map[string]any) error {
			b["payType"] = payType
			return nil
		})
	if err != nil {
		return "", nil, err
	}
	id := jsontree.GetString(body, "data", "orderId")
	if id == "" {
		return "", body, fmt.Errorf("add order: %w: data.orderId missing (code %s)", ErrUnexpectedResponse, Code(body))
	}
	return id, body, nil
}

// CashPay settles orderID in cash. orderType is OrderTypeOrder when empty.
func (r *Retail) CashPay(ctx context.Context, orderID string, amount json.Number, orderType string) (map[string]any, error) {
	if orderType == "" {
		orderType = OrderTypeOrder
	}
	return r.call(ctx, "现金支付", r.Endpoints.CashPay, SectionCashPay, ParamOptions{OrderID: orderID, ActualPayAmount: amount},
		func(b map[string]any) error {
			b["orderType"] = orderType
			return nil
		})
}

// Gift is an entry picked from the gift list.
type Gift struct {
	SpecID   string
	Quantity any
}

// GiftList returns the first selectable gift.
func (r *Retail) GiftList(ctx context.Context) (Gift, map[string]any, error) {
	body, err := r.call(ctx, "获取赠品列表", r.Endpoints.GiftList, SectionGiftList, ParamOptions{}, nil)
	if err != nil {
		return Gift{}, nil, err
	}
	gift := Gift{
		SpecID:   jsontree.GetString(body, "data", "itemsPage", "content", 0, "specId"),
		Quantity: defaultGiftQuantity,
	}
	if q, ok := jsontree.Get(body, "data", "quantity"); ok && q != nil {
		gift.Quantity = q
	}
	return gift, body, nil
}

// SelectGift adds gift to the cart. section defaults to SectionGiftSelection.
func (r *Retail) SelectGift(ctx context.Context, gift Gift, section string) (map[string]any, error) {
	if section == "" {
		section = SectionGiftSelection
	}
	return r.call(ctx, "选择赠品", r.Endpoints.GiftSelection, section, ParamOptions{},
		func(b map[string]any) error {
			b["productList"] = []any{map[string]any{
				"specId":        gift.SpecID,
				"quantity":      gift.Quantity,
				"uniqueCodeSet": []any{},
				"batchList":     []any{},
			}}
			return nil
		})
}

// CardOption is the first stored-value card recharge option.
type CardOption struct {
	CoID       string
	GiveItemID string
	SaleValue  any
}

// CardOptions lists the recharge options and returns the first.
func (r *Retail) CardOptions(ctx context.Context) (CardOption, map[string]any, error) {
	body, err := r.call(ctx, "获取购物卡充值列表", r.Endpoints.CardOptions, SectionCardOptions, ParamOptions{}, nil)
	if err != nil {
		return CardOption{}, nil, err
	}
	opt := CardOption{
		CoID:       jsontree.GetString(body, "DataLine", 0, "coId"),
		GiveItemID: jsontree.GetString(body, "DataLine", 0, "giveItemId"),
		SaleValue:  0,
	}
	if v, ok := jsontree.Get(body, "DataLine", 0, "saleValue"); ok && v != nil {
		opt.SaleValue = v
	}
	return opt, body, nil
}

// SelectRechargeScheme picks the recharge scheme of coID.
func (r *Retail) SelectRechargeScheme(ctx context.Context, coID string) (map[string]any, error) {
	return r.call(ctx, "选择购物卡充值", r.Endpoints.CardRechargeScheme, SectionCardRechargeScheme, ParamOptions{},
		func(b map[string]any) error {
			b["coId"] = coID
			return nil
		})
}

// CardRechargeOptions lists the recharge amounts of the selected card.
func (r *Retail) CardRechargeOptions(ctx context.Context) (map[string]any, error) {
	return r.call(ctx, "获取会员卡充值选项", r.Endpoints.CardRechargeOptions, SectionCardRechargeOptions, ParamOptions{}, nil)
}

// TopUp is the pending recharge order created by CardTopUp.
type TopUp struct {
	OrderID   string
	PayAmount json.Number
	OrderType string
}

// CardTopUp creates a recharge order for opt.
func (r *Retail) CardTopUp(ctx context.Context, opt CardOption) (TopUp, map[string]any, error) {
	body, err := r.call(ctx, "生成卡充值记录", r.Endpoints.CardTopUp, SectionCardTopUp, ParamOptions{},
		func(b map[string]any) error {
			b["coId"] = opt.CoID
			b["giveItemId"] = opt.GiveItemID
			b["salePrice"] = opt.SaleValue
			return nil
		})
	if err != nil {
		return TopUp{}, nil, err
	}
	top := TopUp{
		OrderID:   jsontree.Text(body["orderId"]),
		PayAmount: "0",
		OrderType: jsontree.Text(body["orderType"]),
	}
	if v, ok := body["payAmount"]; ok && v != nil {
		if top.PayAmount, err = toNumber(v); err != nil {
			return TopUp{}, body, fmt.Errorf("card top up: %w", err)
		}
	}
	return top, body, nil
}

// TopUpRecord finds the recharge record whose sourceId equals orderID. The
// returned id is "" when there is none.
func (r *Retail) TopUpRecord(ctx context.Context, orderID string) (string, map[string]any, error) {
	body, err := r.call(ctx, "查询购物卡充值记录", r.Endpoints.CardTopUpRecords, SectionCardTopUpRecords, ParamOptions{}, nil)
	if err != nil {
		return "", nil, err
	}
	content, _ := jsontree.Get(body, "data", "pageData", "content")
	records, _ := content.([]any)
	for _, rec := range records {
		if src := jsontree.GetString(rec, "sourceId"); src != "" && src == orderID {
			r.logger().Info("Matched top-up record", zap.String("source_id", src), zap.String("order_id", orderID))
			return src, body, nil
		}
	}
	r.logger().Warn("No top-up record matched", zap.String("order_id", orderID))
	return "", body, nil
}

// CardRefund refunds amount of the recharge sourceID.
func (r *Retail) CardRefund(ctx context.Context, sourceID string, amount json.Number) (map[string]any, error) {
	return r.call(ctx, "购物卡退款", r.Endpoints.CardRefund, SectionCardRefund, ParamOptions{},
		func(b map[string]any) error {
			b["cardOrderId"] = sourceID
			b["rechargeAmount"] = amount
			b["refundAmount"] = amount
			return nil
		})
}

// AddMember attaches the template member to the cart.
func (r *Retail) AddMember(ctx context.Context) (map[string]any, error) {
	return r.call(ctx, "添加会员", r.Endpoints.AddMember, SectionAddMember, ParamOptions{}, nil)
}

// IntegralPay settles orderID with member points.
func (r *Retail) IntegralPay(ctx context.Context, orderID string, amount json.Number) (map[string]any, error) {
	return r.call(ctx, "积分支付", r.Endpoints.IntegralPay, SectionIntegralPay, ParamOptions{OrderID: orderID, ActualPayAmount: amount}, nil)
}

// MCardPay settles orderID with the member's stored-value card.
func (r *Retail) MCardPay(ctx context.Context, orderID string, amount json.Number) (map[string]any, error) {
	return r.call(ctx, "购物卡支付", r.Endpoints.MCardPay, SectionMCardPay, ParamOptions{OrderID: orderID, ActualPayAmount: amount}, nil)
}

// CardBag returns the number of the first entity card whose balance
// covers amount.
func (r *Retail) CardBag(ctx context.Context, amount json.Number) (string, map[string]any, error) {
	want, err := amount.Float64()
	if err != nil {
		return "", nil, fmt.Errorf("card bag: invalid amount %q: %w", amount, err)
	}
	body, err := r.call(ctx, "获取卡包列表", r.Endpoints.CardBag, SectionCardBag, ParamOptions{}, nil)
	if err != nil {
		return "", nil, err
	}
	lines, _ := body["DataLine"].([]any)
	for _, card := range lines {
		balance, ok := jsontree.GetFloat(card, "balance")
		if !ok {
			balance = 0
		}
		if balance >= want {
			no := jsontree.GetString(card, "cardNo")
			r.logger().Info("Usable entity card found", zap.String("card_no", no), zap.Float64("balance", balance))
			return no, body, nil
		}
	}
	return "", body, ErrNoUsableCard
}

// EntityCardPreCalculate returns the amount payable with cardNo.
func (r *Retail) EntityCardPreCalculate(ctx context.Context, cardNo string) (json.Number, map[string]any, error) {
	body, err := r.call(ctx, "实体卡计算", r.Endpoints.EntityCardPreCalc, SectionEntityCardPreCalculate, ParamOptions{},
		func(b map[string]any) error {
			b["entityCardNo"] = cardNo
			return nil
		})
	if err != nil {
		return "", nil, err
	}
	v, ok := jsontree.Get(body, "data", "payAmount")
	if !ok || v == nil {
		return "0", body, nil
	}
	amount, err := toNumber(v)
	if err != nil {
		return "", body, fmt.Errorf("entity card pre-calculate: %w", err)
	}
	return amount, body, nil
}

// EntityCardPay settles orderID with cardNo.
func (r *Retail) EntityCardPay(ctx context.Context, orderID string, amount json.Number, cardNo string) (map[string]any, error) {
	return r.call(ctx, "实体卡支付", r.Endpoints.EntityCardPay, SectionEntityCardPay, ParamOptions{},
		func(b map[string]any) error {
			b["orderId"] = orderID
			b["payAmount"] = amount
			if err := setOffline(b, "guestPayment", amount); err != nil {
				return err
			}
			return setOffline(b, "cardNo", cardNo)
		})
}

// CreateCashOrder runs the shortest path to a paid cash order: service
// guide, cart item, pay amount, add order and cash pay.
func (r *Retail) CreateCashOrder(ctx context.Context) (string, error) {
	if _, err := r.AddServiceGuide(ctx); err != nil {
		return "", err
	}
	if _, err := r.AddCartItem(ctx, ""); err != nil {
		return "", err
	}
	amount, _, err := r.SystemPayType(ctx, PayTypeCash)
	if err != nil {
		return "", err
	}
	orderID, _, err := r.AddOrder(ctx, amount, PayTypeCash)
	if err != nil {
		return "", err
	}
	resp, err := r.CashPay(ctx, orderID, amount, OrderTypeOrder)
	if err != nil {
		return "", err
	}
	if code := Code(resp); code != "200" {
		return "", fmt.Errorf("cash pay %s: %w: code %s", orderID, ErrUnexpectedResponse, code)
	}
	r.logger().Info("Cash order created", zap.String("order_id", orderID))
	return orderID, nil
}
