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
	"encoding/json"

	"github.com/manyiweb/api-delivery/internal/delivery/api"
	"github.com/manyiweb/api-delivery/internal/delivery/assertion"
)

// SuitePay covers the POS cart, order and payment flows.
const SuitePay = "pay"

// PaySuite returns the payment scenarios.
func PaySuite() []Scenario {
	return []Scenario{
		{Name: "pay_cash", Suite: SuitePay, Title: "现金购买支付", Markers: []string{MarkerCritical}, Run: cashPay},
		{Name: "pay_discount_amount", Suite: SuitePay, Title: "订单优惠金额", Markers: []string{MarkerCritical}, Run: discountPay(api.SectionDiscountAmount, "订单优惠金额")},
		{Name: "pay_discount_rate", Suite: SuitePay, Title: "订单优惠折扣", Markers: []string{MarkerCritical}, Run: discountPay(api.SectionDiscountRate, "订单优惠折扣")},
		{Name: "pay_full_discount", Suite: SuitePay, Title: "订单优惠-满折", Markers: []string{MarkerCritical}, Run: promotionPay(api.SectionPromotionFullDiscount, "订单优惠满折", false, false)},
		{Name: "pay_full_send", Suite: SuitePay, Title: "订单优惠-满增", Markers: []string{MarkerCritical}, Run: promotionPay(api.SectionPromotionFullSend, "订单优惠满增", true, false)},
		{Name: "pay_full_reduction", Suite: SuitePay, Title: "订单优惠-满减", Markers: []string{MarkerCritical}, Run: promotionPay(api.SectionPromotionFullReduction, "订单优惠满减", false, true)},
		{Name: "pay_card_recharge", Suite: SuitePay, Title: "购物卡充值", Markers: []string{MarkerCritical}, Run: cardRecharge},
		{Name: "pay_card_refund", Suite: SuitePay, Title: "购物卡充值后退款", Markers: []string{MarkerCritical}, Run: cardRefund},
		{Name: "pay_member_integral", Suite: SuitePay, Title: "会员积分支付", Markers: []string{MarkerCritical}, Run: memberPay(api.PayTypeIntegral, "会员积分支付")},
		{Name: "pay_member_card", Suite: SuitePay, Title: "购物卡支付", Markers: []string{MarkerCritical}, Run: memberPay(api.PayTypeMCard, "购物卡支付")},
		{Name: "pay_entity_card", Suite: SuitePay, Title: "实体卡支付", Markers: []string{MarkerCritical}, Run: entityCardPay},
	}
}

// requireCode200 fails unless the business code is "200".
func requireCode200(resp map[string]any, what string) error {
	if code := api.Code(resp); code != "200" {
		return assertion.Failf("%s失败：返回码不为200 (%s)", what, code).With("响应", resp)
	}
	return nil
}

// step runs fn as a named step that ignores the response body.
func step(t *T, name string, fn func() (map[string]any, error)) error {
	return t.Step(name, func() error {
		_, err := fn()
		return err
	})
}

// checkout prices the cart for payType and creates the order.
func checkout(ctx context.Context, t *T, payType string) (string, json.Number, error) {
	r := t.Env().Retail
	var amount json.Number
	if err := t.Step("获取支付金额", func() error {
		var err error
		amount, _, err = r.SystemPayType(ctx, payType)
		return err
	}); err != nil {
		return "", "", err
	}
	var orderID string
	err := t.Step("新增订单", func() error {
		var err error
		orderID, _, err = r.AddOrder(ctx, amount, payType)
		return err
	})
	return orderID, amount, err
}

// cashCheckout creates a cash order for the current cart, pays it and
// checks the code.
func cashCheckout(ctx context.Context, t *T, what string) error {
	orderID, amount, err := checkout(ctx, t, api.PayTypeCash)
	if err != nil {
		return err
	}
	return t.Step("现金支付", func() error {
		resp, err := t.Env().Retail.CashPay(ctx, orderID, amount, api.OrderTypeOrder)
		if err != nil {
			return err
		}
		return requireCode200(resp, what)
	})
}

func prepareCart(ctx context.Context, t *T, section string) error {
	r := t.Env().Retail
	if err := step(t, "添加服务导购", func() (map[string]any, error) { return r.AddServiceGuide(ctx) }); err != nil {
		return err
	}
	return step(t, "添加购物车商品", func() (map[string]any, error) { return r.AddCartItem(ctx, section) })
}

func cashPay(ctx context.Context, t *T) error {
	if err := prepareCart(ctx, t, api.SectionAddCartItem); err != nil {
		return err
	}
	return cashCheckout(ctx, t, "现金支付")
}

func discountPay(section, what string) Func {
	return func(ctx context.Context, t *T) error {
		if err := prepareCart(ctx, t, api.SectionAddCartItemForDiscount); err != nil {
			return err
		}
		if err := step(t, "新增整单优惠", func() (map[string]any, error) {
			return t.Env().Retail.CustomDiscount(ctx, section)
		}); err != nil {
			return err
		}
		return cashCheckout(ctx, t, what+"支付")
	}
}

func promotionPay(section, what string, withGift, emptyCart bool) Func {
	return func(ctx context.Context, t *T) error {
		r := t.Env().Retail
		if emptyCart {
			if err := step(t, "清空购物车", func() (map[string]any, error) { return r.ClearCart(ctx) }); err != nil {
				return err
			}
		}
		if err := prepareCart(ctx, t, api.SectionAddCartItemForDiscount); err != nil {
			return err
		}
		if err := step(t, "更新优惠计划", func() (map[string]any, error) { return r.PromotionPlan(ctx, section) }); err != nil {
			return err
		}
		if withGift {
			var gift api.Gift
			if err := t.Step("获取赠品列表", func() error {
				var err error
				gift, _, err = r.GiftList(ctx)
				return err
			}); err != nil {
				return err
			}
			if err := step(t, "选择赠品", func() (map[string]any, error) {
				return r.SelectGift(ctx, gift, api.SectionGiftSelection)
			}); err != nil {
				return err
			}
		}
		return cashCheckout(ctx, t, what+"支付")
	}
}

// topUp picks the first recharge option, tops the card up and pays for it
// in cash.
func topUp(ctx context.Context, t *T) (api.TopUp, map[string]any, error) {
	r := t.Env().Retail
	var opt api.CardOption
	if err := t.Step("获取购物卡充值列表", func() error {
		var err error
		opt, _, err = r.CardOptions(ctx)
		return err
	}); err != nil {
		return api.TopUp{}, nil, err
	}
	if err := step(t, "选择购物卡充值方案", func() (map[string]any, error) {
		return r.SelectRechargeScheme(ctx, opt.CoID)
	}); err != nil {
		return api.TopUp{}, nil, err
	}
	var top api.TopUp
	if err := t.Step("生成卡充值记录", func() error {
		var err error
		top, _, err = r.CardTopUp(ctx, opt)
		return err
	}); err != nil {
		return api.TopUp{}, nil, err
	}
	var resp map[string]any
	err := t.Step("支付充值订单", func() error {
		var err error
		resp, err = r.CashPay(ctx, top.OrderID, top.PayAmount, top.OrderType)
		return err
	})
	return top, resp, err
}

func cardRecharge(ctx context.Context, t *T) error {
	_, resp, err := topUp(ctx, t)
	if err != nil {
		return err
	}
	return requireCode200(resp, "购物卡充值支付")
}

func cardRefund(ctx context.Context, t *T) error {
	top, _, err := topUp(ctx, t)
	if err != nil {
		return err
	}
	r := t.Env().Retail
	var sourceID string
	if err := t.Step("查询购物卡充值记录", func() error {
		var err error
		sourceID, _, err = r.TopUpRecord(ctx, top.OrderID)
		return err
	}); err != nil {
		return err
	}
	return t.Step("购物卡退款", func() error {
		resp, err := r.CardRefund(ctx, sourceID, top.PayAmount)
		if err != nil {
			return err
		}
		return requireCode200(resp, "购物卡退款")
	})
}

func memberCart(ctx context.Context, t *T) error {
	r := t.Env().Retail
	if err := step(t, "添加服务导购", func() (map[string]any, error) { return r.AddServiceGuide(ctx) }); err != nil {
		return err
	}
	if err := step(t, "添加会员", func() (map[string]any, error) { return r.AddMember(ctx) }); err != nil {
		return err
	}
	return step(t, "添加购物车商品", func() (map[string]any, error) {
		return r.AddCartItem(ctx, api.SectionAddCartItemForDiscount)
	})
}

func memberPay(payType, what string) Func {
	return func(ctx context.Context, t *T) error {
		if err := memberCart(ctx, t); err != nil {
			return err
		}
		orderID, amount, err := checkout(ctx, t, payType)
		if err != nil {
			return err
		}
		r := t.Env().Retail
		return t.Step(what, func() error {
			var resp map[string]any
			var err error
			if payType == api.PayTypeIntegral {
				resp, err = r.IntegralPay(ctx, orderID, amount)
			} else {
				resp, err = r.MCardPay(ctx, orderID, amount)
			}
			if err != nil {
				return err
			}
			return requireCode200(resp, what)
		})
	}
}

func entityCardPay(ctx context.Context, t *T) error {
	if err := memberCart(ctx, t); err != nil {
		return err
	}
	r := t.Env().Retail

	var amount json.Number
	if err := t.Step("获取支付金额", func() error {
		var err error
		amount, _, err = r.SystemPayType(ctx, api.PayTypeEntityCard)
		return err
	}); err != nil {
		return err
	}
	var cardNo string
	if err := t.Step("获取可用实体卡", func() error {
		var err error
		cardNo, _, err = r.CardBag(ctx, amount)
		return err
	}); err != nil {
		return err
	}
	var payAmount json.Number
	if err := t.Step("实体卡预计算", func() error {
		var err error
		payAmount, _, err = r.EntityCardPreCalculate(ctx, cardNo)
		return err
	}); err != nil {
		return err
	}
	var orderID string
	if err := t.Step("新增订单", func() error {
		var err error
		orderID, _, err = r.AddOrder(ctx, payAmount, api.PayTypeEntityCard)
		return err
	}); err != nil {
		return err
	}
	return t.Step("实体卡支付", func() error {
		resp, err := r.EntityCardPay(ctx, orderID, payAmount, cardNo)
		if err != nil {
			return err
		}
		return requireCode200(resp, "实体卡支付")
	})
}
