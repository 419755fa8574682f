package stats

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// TotalKey is the rate table entry holding the overall win rate.
const TotalKey = "total"

// RateTable is a JSON object of fractions in [0,1] that remembers the order
// its keys arrived in.
type RateTable struct {
	keys   []string
	values map[string]float64
}

func NewRateTable() RateTable {
	return RateTable{values: map[string]float64{}}
}

func (t *RateTable) Set(key string, v float64) {
	if t.values == nil {
		t.values = map[string]float64{}
	}
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

func (t RateTable) Get(key string) (float64, bool) {
	v, ok := t.values[key]
	return v, ok
}

func (t RateTable) Keys() []string {
	return append([]string(nil), t.keys...)
}

func (t RateTable) Len() int {
	return len(t.keys)
}

func (t RateTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range t.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(t.values[k], 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *RateTable) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("rate table: invalid json")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("rate table: expected object, got %s", res.Type)
	}

	*t = NewRateTable()
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			err = fmt.Errorf("rate table: %q is not a number", key.String())
			return false
		}
		t.Set(key.String(), value.Float())
		return true
	})
	return err
}

// ChartData is the payload behind the dashboard chart. House holds the
// baseline win share per house; Rate holds the viewer's win rate against
// each house plus TotalKey.
type ChartData struct {
	House RateTable `json:"house"`
	Rate  RateTable `json:"rate"`
}
