package service

import (
	"math"
	"testing"

	"fundarb/internal/domain/model"
)

func rate(exchange, token string, funding float64) model.FundingRate {
	return model.FundingRate{
		Exchange:    exchange,
		Symbol:      token + "USDT",
		BaseToken:   token,
		FundingRate: funding,
	}
}

// TestExtremalTwoExchanges 双所基本场景：低费率所做多，高费率所做空
func TestExtremalTwoExchanges(t *testing.T) {
	det := NewOpportunityDetector(0, 0.0001)

	rates := []model.FundingRate{
		rate("A", "BTC", 0.0001),
		rate("B", "BTC", 0.0006),
	}

	opps := det.Extremal(rates)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	opp := opps[0]
	if opp.LongExchange != "A" || opp.ShortExchange != "B" {
		t.Errorf("leg assignment wrong: long=%s short=%s", opp.LongExchange, opp.ShortExchange)
	}
	if math.Abs(opp.RateDifference-0.0005) > 1e-12 {
		t.Errorf("rate difference mismatch: expected 0.0005, got %g", opp.RateDifference)
	}
}

// TestExtremalPicksMinAndMax 三所场景取极值
func TestExtremalPicksMinAndMax(t *testing.T) {
	det := NewOpportunityDetector(0, 0.0001)

	rates := []model.FundingRate{
		rate("binance", "ETH", 0.0003),
		rate("bybit", "ETH", -0.0002),
		rate("gate", "ETH", 0.0001),
	}

	opps := det.Extremal(rates)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	opp := opps[0]
	if opp.LongRate != -0.0002 || opp.ShortRate != 0.0003 {
		t.Errorf("extremal legs wrong: long=%g short=%g", opp.LongRate, opp.ShortRate)
	}
	if opp.LongExchange != "bybit" || opp.ShortExchange != "binance" {
		t.Errorf("extremal exchanges wrong: long=%s short=%s", opp.LongExchange, opp.ShortExchange)
	}
}

// TestExtremalThreshold 差值低于阈值不产出
func TestExtremalThreshold(t *testing.T) {
	det := NewOpportunityDetector(0, 0.0001)

	rates := []model.FundingRate{
		rate("A", "BTC", 0.00010),
		rate("B", "BTC", 0.00015),
	}

	if opps := det.Extremal(rates); len(opps) != 0 {
		t.Errorf("expected no opportunities below threshold, got %d", len(opps))
	}
}

// TestSingleExchangeNoOpportunity 单所数据不产出机会
func TestSingleExchangeNoOpportunity(t *testing.T) {
	det := NewOpportunityDetector(0, 0)

	rates := []model.FundingRate{rate("A", "SOL", 0.01)}

	if opps := det.Extremal(rates); len(opps) != 0 {
		t.Errorf("extremal: expected 0, got %d", len(opps))
	}
	if opps := det.TopPairwise(rates); len(opps) != 0 {
		t.Errorf("pairwise: expected 0, got %d", len(opps))
	}
}

// TestPairwiseEnumeratesAllPairs 三所产生 3 个配对机会，按费率差降序
func TestPairwiseEnumeratesAllPairs(t *testing.T) {
	det := NewOpportunityDetector(10, 0)

	rates := []model.FundingRate{
		rate("binance", "ETH", 0.0003),
		rate("bybit", "ETH", -0.0002),
		rate("gate", "ETH", 0.0001),
	}

	opps := det.TopPairwise(rates)
	if len(opps) != 3 {
		t.Fatalf("expected 3 pairwise opportunities, got %d", len(opps))
	}

	// (-0.0002, 0.0003) 差 0.0005 应排第一
	first := opps[0]
	if math.Abs(first.RateDifference-0.0005) > 1e-12 {
		t.Errorf("top pair difference mismatch: expected 0.0005, got %g", first.RateDifference)
	}
	if first.LongExchange != "bybit" || first.ShortExchange != "binance" {
		t.Errorf("top pair legs wrong: long=%s short=%s", first.LongExchange, first.ShortExchange)
	}

	for i := 1; i < len(opps); i++ {
		if opps[i].RateDifference > opps[i-1].RateDifference {
			t.Errorf("opportunities not sorted descending at index %d", i)
		}
	}
}

// TestPairwiseLimit 截断到 limit
func TestPairwiseLimit(t *testing.T) {
	det := NewOpportunityDetector(2, 0)

	rates := []model.FundingRate{
		rate("a", "BTC", 0.0001),
		rate("b", "BTC", 0.0002),
		rate("c", "BTC", 0.0004),
		rate("d", "BTC", 0.0008),
	}

	opps := det.TopPairwise(rates) // C(4,2)=6 候选
	if len(opps) != 2 {
		t.Errorf("expected truncation to 2, got %d", len(opps))
	}
}

// TestDifferenceNonNegative 负费率输入下差值仍非负
func TestDifferenceNonNegative(t *testing.T) {
	det := NewOpportunityDetector(100, 0)

	rates := []model.FundingRate{
		rate("a", "BTC", -0.0007),
		rate("b", "BTC", -0.0001),
		rate("a", "ETH", -0.0003),
		rate("b", "ETH", 0.0002),
		rate("a", "SOL", 0.0),
		rate("b", "SOL", 0.0),
	}

	for _, opp := range det.TopPairwise(rates) {
		if opp.RateDifference < 0 {
			t.Errorf("%s: negative rate difference %g", opp.BaseToken, opp.RateDifference)
		}
		if opp.LongRate > opp.ShortRate {
			t.Errorf("%s: long rate %g > short rate %g", opp.BaseToken, opp.LongRate, opp.ShortRate)
		}
		if math.Abs(opp.RateDifference-math.Abs(opp.ShortRate-opp.LongRate)) > 1e-12 {
			t.Errorf("%s: difference != |short-long|", opp.BaseToken)
		}
	}
}

// TestStableSortPreservesEncounterOrder 相等差值保留输入顺序
func TestStableSortPreservesEncounterOrder(t *testing.T) {
	det := NewOpportunityDetector(10, 0)

	// BTC 与 ETH 的差值相同，BTC 先出现
	rates := []model.FundingRate{
		rate("a", "BTC", 0.0001),
		rate("b", "BTC", 0.0003),
		rate("a", "ETH", 0.0002),
		rate("b", "ETH", 0.0004),
	}

	opps := det.TopPairwise(rates)
	if len(opps) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(opps))
	}
	if opps[0].BaseToken != "BTC" || opps[1].BaseToken != "ETH" {
		t.Errorf("tie order not preserved: got %s, %s", opps[0].BaseToken, opps[1].BaseToken)
	}
}

// TestExtremalZeroThreshold 显式零阈值是合法配置：所有差值 >= 0 的配对都产出
func TestExtremalZeroThreshold(t *testing.T) {
	det := NewOpportunityDetector(0, 0)

	rates := []model.FundingRate{
		rate("A", "BTC", 0.0003),
		rate("B", "BTC", 0.0003),
	}

	opps := det.Extremal(rates)
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity at zero threshold, got %d", len(opps))
	}
	if opps[0].RateDifference != 0 {
		t.Errorf("rate difference: expected 0, got %g", opps[0].RateDifference)
	}
}

// TestNegativeThresholdFallsBack 负阈值没有意义，回退默认值
func TestNegativeThresholdFallsBack(t *testing.T) {
	det := NewOpportunityDetector(0, -1)

	rates := []model.FundingRate{
		rate("A", "BTC", 0.0003),
		rate("B", "BTC", 0.0003),
	}

	if opps := det.Extremal(rates); len(opps) != 0 {
		t.Fatalf("expected 0 opportunities below default threshold, got %d", len(opps))
	}
}
