package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReading(t *testing.T) {
	cases := []struct {
		in      string
		absent  bool
		number  bool
		want    string
		wantNum float64
	}{
		{in: "", absent: true, want: "null"},
		{in: "  null \n", absent: true, want: "null"},
		{in: "42", number: true, want: "42", wantNum: 42},
		{in: " 1.25 ", number: true, want: "1.25", wantNum: 1.25},
		{in: "-3e2", number: true, want: "-300", wantNum: -300},
		{in: "NaN", want: "NaN"},
		{in: "N/A", want: "N/A"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			r := ParseReading([]byte(tc.in))
			assert.Equal(t, tc.absent, r.IsAbsent())
			assert.Equal(t, tc.number, r.IsNumber())
			assert.Equal(t, tc.want, r.String())
			if tc.number {
				v, ok := r.Float()
				require.True(t, ok)
				assert.Equal(t, tc.wantNum, v)
			}
		})
	}
}

func TestReadingJSON(t *testing.T) {
	d := AmplifierData{}.With(MetricPower, Number(1500)).With(MetricSWR, Raw("1.3"))

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"power":1500,"temp":null,"swr":"1.3","current":null}`, string(b))

	var back AmplifierData
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)

	v, ok := back.SWR.Float()
	require.True(t, ok)
	assert.Equal(t, 1.3, v)

	_, ok = back.Temp.Float()
	assert.False(t, ok)

	var bad Reading
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("swr")
	require.NoError(t, err)
	assert.Equal(t, MetricSWR, m)

	_, err = ParseMetric("voltage")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestParseNotification(t *testing.T) {
	msg, err := ParseNotification([]byte(`{"title":"Station 3","message":"TX inhibited","type":"error","duration":10}`))
	require.NoError(t, err)
	assert.Equal(t, "Station 3", msg.Title)
	assert.Equal(t, "TX inhibited", msg.Message)
	assert.Equal(t, TypeError, msg.Type)
	require.NotNil(t, msg.Duration)
	assert.EqualValues(t, 10, *msg.Duration)

	msg, err = ParseNotification([]byte(`{"title":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeInfo, msg.Type)
	assert.Nil(t, msg.Duration)

	_, err = ParseNotification([]byte(" null "))
	assert.ErrorIs(t, err, ErrNullPayload)

	for _, bad := range []string{`not json`, `[1,2]`, `{"duration":-1}`, `{"title":5}`} {
		_, err = ParseNotification([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidPayload, bad)
	}
}
