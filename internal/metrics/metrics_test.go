package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"soondex/internal/dex"
)

func TestObserveOperation(t *testing.T) {
	m := New()
	m.ObserveOperation("swap", nil)
	m.ObserveOperation("swap", fmt.Errorf("swap: %w", dex.ErrExcessiveSlippage))
	m.ObserveOperation("swap", errors.New("ledger offline"))

	if got := testutil.ToFloat64(m.Operations.WithLabelValues("swap", "ok")); got != 1 {
		t.Fatalf("ok count = %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("swap", "ExcessiveSlippage")); got != 1 {
		t.Fatalf("slippage count = %v", got)
	}
	if got := testutil.ToFloat64(m.Operations.WithLabelValues("swap", "error")); got != 1 {
		t.Fatalf("error count = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("swap", nil)
	m.ObserveSwap("mint", 1, 1)
	m.ObservePool("pool", 1, 1, 0)
	m.ForgetPool("pool")
	if err := m.WriteTextfile("ignored"); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveSwap("mintA", 1000, 3)
	path := filepath.Join(t.TempDir(), "soondex.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `soondex_swap_volume_total{mint="mintA"} 1000`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}

func TestCodeLabel(t *testing.T) {
	if got := CodeLabel(dex.ErrPoolNotEmpty); got != "6018" {
		t.Fatalf("code label = %q", got)
	}
	if got := CodeLabel(errors.New("x")); got != "" {
		t.Fatalf("code label = %q", got)
	}
}
