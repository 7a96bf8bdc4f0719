package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Order status values reported by the gateways.
const (
	StatusLive = "LIVE"
	StatusTest = "TEST_MODE"
)

// Position is an open entry order being managed by the lifecycle engine.
//
// TakeProfit is +Inf when trailing mode is enabled (trailing supersedes the
// fixed take-profit). TrailingStopMax starts at -Inf and is only ever
// raised; TrailingStop is derived from it and is unreachable until the max
// has been raised at least once.
type Position struct {
	ID         string
	Broker     string
	Symbol     string
	Instrument Instrument
	OpenedAt   time.Time
	EntryPrice float64
	Side       OrderSide
	Size       float64
	Status     string

	TakeProfit      float64
	StopLoss        float64
	TrailingStopMax float64
	TrailingStop    float64
}

// ClosedPosition is the terminal record of a Position. Created exactly once
// at close time and immutable afterward.
type ClosedPosition struct {
	Position

	ExitPrice     float64
	Profit        float64
	ProfitPercent float64
	ClosedAt      time.Time
}

// ---------------------------------------------------------------------------
// JSON encoding.
//
// encoding/json refuses non-finite floats, but take_profit and the trailing
// fields are legitimately ±Inf (see above). Snapshots encode non-finite
// values as the strings "inf" / "-inf" so the files stay parseable by
// standard JSON tooling.
// ---------------------------------------------------------------------------

// floatOrInf is a float64 whose JSON form tolerates ±Inf.
type floatOrInf float64

func (f floatOrInf) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-inf"`), nil
	default:
		return json.Marshal(v)
	}
}

func (f *floatOrInf) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "inf", "Infinity":
			*f = floatOrInf(math.Inf(1))
			return nil
		case "-inf", "-Infinity":
			*f = floatOrInf(math.Inf(-1))
			return nil
		default:
			return fmt.Errorf("domain: invalid float string %q", s)
		}
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = floatOrInf(v)
	return nil
}

// positionJSON mirrors Position with snapshot field names.
type positionJSON struct {
	ID         string     `json:"id"`
	Broker     string     `json:"broker"`
	Symbol     string     `json:"symbol"`
	Instrument Instrument `json:"instrument"`
	OpenedAt   time.Time  `json:"opened_at"`
	EntryPrice float64    `json:"entry_price"`
	Side       OrderSide  `json:"side"`
	Size       float64    `json:"size"`
	Status     string     `json:"status"`

	TakeProfit      floatOrInf `json:"take_profit"`
	StopLoss        float64    `json:"stop_loss"`
	TrailingStopMax floatOrInf `json:"trailing_stop_max"`
	TrailingStop    floatOrInf `json:"trailing_stop"`
}

func (p Position) toJSON() positionJSON {
	return positionJSON{
		ID:              p.ID,
		Broker:          p.Broker,
		Symbol:          p.Symbol,
		Instrument:      p.Instrument,
		OpenedAt:        p.OpenedAt,
		EntryPrice:      p.EntryPrice,
		Side:            p.Side,
		Size:            p.Size,
		Status:          p.Status,
		TakeProfit:      floatOrInf(p.TakeProfit),
		StopLoss:        p.StopLoss,
		TrailingStopMax: floatOrInf(p.TrailingStopMax),
		TrailingStop:    floatOrInf(p.TrailingStop),
	}
}

func (j positionJSON) toPosition() Position {
	return Position{
		ID:              j.ID,
		Broker:          j.Broker,
		Symbol:          j.Symbol,
		Instrument:      j.Instrument,
		OpenedAt:        j.OpenedAt,
		EntryPrice:      j.EntryPrice,
		Side:            j.Side,
		Size:            j.Size,
		Status:          j.Status,
		TakeProfit:      float64(j.TakeProfit),
		StopLoss:        j.StopLoss,
		TrailingStopMax: float64(j.TrailingStopMax),
		TrailingStop:    float64(j.TrailingStop),
	}
}

// MarshalJSON implements json.Marshaler.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.toJSON())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Position) UnmarshalJSON(data []byte) error {
	var j positionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*p = j.toPosition()
	return nil
}

// closedPositionJSON mirrors ClosedPosition with snapshot field names.
type closedPositionJSON struct {
	positionJSON

	ExitPrice     float64   `json:"exit_price"`
	Profit        float64   `json:"profit_absolute"`
	ProfitPercent float64   `json:"profit_percent"`
	ClosedAt      time.Time `json:"closed_at"`
}

// MarshalJSON implements json.Marshaler.
func (c ClosedPosition) MarshalJSON() ([]byte, error) {
	return json.Marshal(closedPositionJSON{
		positionJSON:  c.Position.toJSON(),
		ExitPrice:     c.ExitPrice,
		Profit:        c.Profit,
		ProfitPercent: c.ProfitPercent,
		ClosedAt:      c.ClosedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ClosedPosition) UnmarshalJSON(data []byte) error {
	var j closedPositionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*c = ClosedPosition{
		Position:      j.positionJSON.toPosition(),
		ExitPrice:     j.ExitPrice,
		Profit:        j.Profit,
		ProfitPercent: j.ProfitPercent,
		ClosedAt:      j.ClosedAt,
	}
	return nil
}
