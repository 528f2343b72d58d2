package execution

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Scratouze/trading-bot-test/internal/exchange"
	"github.com/Scratouze/trading-bot-test/internal/risk"
)

type fakeGateway struct {
	prec       exchange.Precision
	precOK     bool
	precErr    error
	orderErr   error
	orderCalls int
}

func (f *fakeGateway) Precision(context.Context, string) (exchange.Precision, bool, error) {
	return f.prec, f.precOK, f.precErr
}

func (f *fakeGateway) MarketOrder(_ context.Context, symbol string, side exchange.Side, qty float64) (exchange.OrderResult, error) {
	f.orderCalls++
	if f.orderErr != nil {
		return exchange.OrderResult{}, f.orderErr
	}
	return exchange.OrderResult{OrderID: "1", Symbol: symbol, Side: side, Status: "FILLED", ExecutedQty: qty}, nil
}

func newTestController(gw *fakeGateway, dryRun bool) *Controller {
	return NewController(gw, risk.Config{StopLossPct: 0.03, TakeProfitPct: 0.06, MaxOrdersPerMin: 3}, dryRun, zerolog.Nop())
}

func TestSizeOrderStepAligned(t *testing.T) {
	gw := &fakeGateway{prec: exchange.Precision{MinQty: 0.01, StepSize: 0.01}, precOK: true}
	ctrl := newTestController(gw, true)

	qty, err := ctrl.SizeOrder(context.Background(), "BTCUSDT", 100, 50)
	if err != nil {
		t.Fatalf("SizeOrder returned error: %v", err)
	}
	if qty != 2.00 {
		t.Fatalf("expected 2.00, got %g", qty)
	}
}

func TestSizeOrderFloorsToStep(t *testing.T) {
	gw := &fakeGateway{prec: exchange.Precision{StepSize: 0.1}, precOK: true}
	ctrl := newTestController(gw, true)

	qty, err := ctrl.SizeOrder(context.Background(), "BTCUSDT", 33, 50)
	if err != nil {
		t.Fatalf("SizeOrder returned error: %v", err)
	}
	if qty != 0.6 {
		t.Fatalf("expected raw 0.66 floored to 0.6, got %g", qty)
	}
}

func TestSizeOrderRaisesToMinQty(t *testing.T) {
	gw := &fakeGateway{prec: exchange.Precision{MinQty: 0.5, StepSize: 0.1}, precOK: true}
	ctrl := newTestController(gw, true)

	qty, err := ctrl.SizeOrder(context.Background(), "BTCUSDT", 10, 50) // raw 0.2
	if err != nil {
		t.Fatalf("SizeOrder returned error: %v", err)
	}
	if qty != 0.5 {
		t.Fatalf("expected raise to min qty 0.5, got %g", qty)
	}
}

func TestSizeOrderZeroMeansUnsizable(t *testing.T) {
	gw := &fakeGateway{prec: exchange.Precision{StepSize: 1}, precOK: true}
	ctrl := newTestController(gw, true)

	qty, err := ctrl.SizeOrder(context.Background(), "BTCUSDT", 10, 50) // raw 0.2 floors to 0
	if err != nil {
		t.Fatalf("SizeOrder returned error: %v", err)
	}
	if qty != 0 {
		t.Fatalf("expected 0 for unsizable order, got %g", qty)
	}
}

func TestSizeOrderWithoutPublishedPrecision(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := newTestController(gw, true)

	qty, err := ctrl.SizeOrder(context.Background(), "BTCUSDT", 100, 40)
	if err != nil {
		t.Fatalf("SizeOrder returned error: %v", err)
	}
	if qty != 2.5 {
		t.Fatalf("expected raw quantity 2.5, got %g", qty)
	}
}

func TestSizeOrderPropagatesGatewayFault(t *testing.T) {
	gw := &fakeGateway{precErr: exchange.ErrGatewayUnavailable}
	ctrl := newTestController(gw, true)

	if _, err := ctrl.SizeOrder(context.Background(), "BTCUSDT", 100, 50); !errors.Is(err, exchange.ErrGatewayUnavailable) {
		t.Fatalf("expected gateway fault, got %v", err)
	}
}

func TestAdmitSlidingWindow(t *testing.T) {
	ctrl := newTestController(&fakeGateway{}, true)
	clock := time.UnixMilli(1_700_000_000_000)
	ctrl.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		clock = clock.Add(3 * time.Second)
		if !ctrl.Admit() {
			t.Fatalf("order %d should be admitted", i+1)
		}
	}
	clock = clock.Add(1 * time.Second)
	if ctrl.Admit() {
		t.Fatalf("4th order inside the window should be denied")
	}
	clock = clock.Add(61 * time.Second)
	if !ctrl.Admit() {
		t.Fatalf("order after the window elapsed should be admitted")
	}
}

func TestSubmitDeniedSkipsNetwork(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := newTestController(gw, false)
	for i := 0; i < 3; i++ {
		ctrl.Admit()
	}

	_, status := ctrl.Submit(context.Background(), "BTCUSDT", exchange.SideBuy, 1)
	if status != Denied {
		t.Fatalf("expected Denied, got %s", status)
	}
	if gw.orderCalls != 0 {
		t.Fatalf("denied submit must not reach the gateway, got %d calls", gw.orderCalls)
	}
}

func TestSubmitDryRunSynthesizesFill(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := newTestController(gw, true)

	res, status := ctrl.Submit(context.Background(), "BTCUSDT", exchange.SideBuy, 0.5)
	if status != Filled {
		t.Fatalf("expected Filled, got %s", status)
	}
	if !strings.HasPrefix(res.OrderID, "DRYRUN-") {
		t.Fatalf("expected synthesized order id, got %s", res.OrderID)
	}
	if res.Status != "FILLED" || res.ExecutedQty != 0.5 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gw.orderCalls != 0 {
		t.Fatalf("dry run must not reach the gateway, got %d calls", gw.orderCalls)
	}
}

func TestSubmitLiveFailure(t *testing.T) {
	gw := &fakeGateway{orderErr: exchange.ErrOrderRejected}
	ctrl := newTestController(gw, false)

	_, status := ctrl.Submit(context.Background(), "BTCUSDT", exchange.SideSell, 1)
	if status != Failed {
		t.Fatalf("expected Failed, got %s", status)
	}
}

func TestSubmitLiveSuccess(t *testing.T) {
	gw := &fakeGateway{}
	ctrl := newTestController(gw, false)

	res, status := ctrl.Submit(context.Background(), "BTCUSDT", exchange.SideSell, 1)
	if status != Filled {
		t.Fatalf("expected Filled, got %s", status)
	}
	if res.OrderID != "1" || gw.orderCalls != 1 {
		t.Fatalf("expected one gateway call, got %+v calls=%d", res, gw.orderCalls)
	}
}
