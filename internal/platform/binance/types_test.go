package binance

import (
	"encoding/json"
	"testing"
)

func TestKlineRowToDomain(t *testing.T) {
	raw := `[1700000040000,"100.5","110.25","99.75","108.0","42.42",1700000099999,"4578.1",120,"21.2","2289.0","0"]`
	var row klineRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		t.Fatalf("unmarshal row: %v", err)
	}

	k, err := row.ToDomainKline()
	if err != nil {
		t.Fatalf("ToDomainKline: %v", err)
	}

	if k.OpenTime != 1700000040 {
		t.Errorf("openTime = %d, want 1700000040 (seconds)", k.OpenTime)
	}
	if k.Open != 100.5 || k.High != 110.25 || k.Low != 99.75 || k.Close != 108.0 {
		t.Errorf("OHLC = %v/%v/%v/%v", k.Open, k.High, k.Low, k.Close)
	}
	if k.Volume != 42.42 {
		t.Errorf("volume = %v, want 42.42", k.Volume)
	}
}

func TestKlineRowErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"too short", `[1700000040000,"100","110"]`},
		{"bad open time", `["nope","100","110","99","108","42"]`},
		{"bad price", `[1700000040000,"not a number","110","99","108","42"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row klineRow
			if err := json.Unmarshal([]byte(tt.raw), &row); err != nil {
				t.Fatalf("unmarshal row: %v", err)
			}
			if _, err := row.ToDomainKline(); err == nil {
				t.Error("ToDomainKline succeeded, want error")
			}
		})
	}
}

func TestAggTradeToDomain(t *testing.T) {
	var at AggTrade
	raw := `{"a":26129,"p":"105.75","q":"2.5","f":27781,"l":27781,"T":1700000012345,"m":true,"M":true}`
	if err := json.Unmarshal([]byte(raw), &at); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tr, err := at.ToDomainTrade()
	if err != nil {
		t.Fatalf("ToDomainTrade: %v", err)
	}
	if tr.Time != 1700000012 {
		t.Errorf("time = %d, want 1700000012 (seconds)", tr.Time)
	}
	if tr.Price != 105.75 || tr.Quantity != 2.5 {
		t.Errorf("price/qty = %v/%v, want 105.75/2.5", tr.Price, tr.Quantity)
	}
	if !tr.IsBuyerMaker {
		t.Error("isBuyerMaker = false, want true")
	}
}

func TestAggTradeBadNumbers(t *testing.T) {
	if _, err := (AggTrade{Price: "x", Quantity: "1", Time: 1}).ToDomainTrade(); err == nil {
		t.Error("bad price accepted")
	}
	if _, err := (AggTrade{Price: "1", Quantity: "x", Time: 1}).ToDomainTrade(); err == nil {
		t.Error("bad quantity accepted")
	}
}

func TestStreamTradeToDomain(t *testing.T) {
	var st StreamTrade
	raw := `{"e":"trade","E":1700000012350,"s":"BTCUSDT","t":12345,"p":"105.75","q":"0.5","T":1700000012345,"m":false,"M":true}`
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	ev, err := st.ToDomainEvent()
	if err != nil {
		t.Fatalf("ToDomainEvent: %v", err)
	}
	if ev.Time != 1700000012 {
		t.Errorf("time = %d, want 1700000012 (seconds)", ev.Time)
	}
	if ev.Price != 105.75 || ev.Quantity != 0.5 {
		t.Errorf("price/qty = %v/%v, want 105.75/0.5", ev.Price, ev.Quantity)
	}
	if ev.IsBuyerMaker {
		t.Error("isBuyerMaker = true, want false")
	}
	if err := ev.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
