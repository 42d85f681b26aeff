package registry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ceyewan/pushgate/xerrors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		desc   Descriptor
		reason Reason
	}{
		{name: "plain", desc: Descriptor{Name: "request_count", Kind: KindCounter}},
		{name: "colon and digits", desc: Descriptor{Name: "job:http_2xx:rate5m", Kind: KindGauge}},
		{name: "leading underscore", desc: Descriptor{Name: "_private", Kind: KindGauge, LabelNames: []string{"_x", "service"}}},
		{name: "help with newline", desc: Descriptor{Name: "up", Kind: KindGauge, Help: "line1\nline2 \"quoted\""}},
		{name: "empty name", desc: Descriptor{Name: "", Kind: KindGauge}, reason: ReasonInvalidName},
		{name: "leading digit", desc: Descriptor{Name: "1abc", Kind: KindGauge}, reason: ReasonInvalidName},
		{name: "dash", desc: Descriptor{Name: "http-requests", Kind: KindGauge}, reason: ReasonInvalidName},
		{name: "space", desc: Descriptor{Name: "http requests", Kind: KindGauge}, reason: ReasonInvalidName},
		{name: "unicode", desc: Descriptor{Name: "温度", Kind: KindGauge}, reason: ReasonInvalidName},
		{name: "unknown kind", desc: Descriptor{Name: "x", Kind: KindUnknown}, reason: ReasonInvalidKind},
		{name: "label with colon", desc: Descriptor{Name: "x", Kind: KindGauge, LabelNames: []string{"a:b"}}, reason: ReasonInvalidLabel},
		{name: "label leading digit", desc: Descriptor{Name: "x", Kind: KindGauge, LabelNames: []string{"0a"}}, reason: ReasonInvalidLabel},
		{name: "empty label", desc: Descriptor{Name: "x", Kind: KindGauge, LabelNames: []string{""}}, reason: ReasonInvalidLabel},
		{name: "reserved le", desc: Descriptor{Name: "x", Kind: KindHistogram, LabelNames: []string{"le"}}, reason: ReasonInvalidLabel},
		{name: "reserved quantile", desc: Descriptor{Name: "x", Kind: KindGauge, LabelNames: []string{"quantile"}}, reason: ReasonInvalidLabel},
		{name: "reserved prefix", desc: Descriptor{Name: "x", Kind: KindGauge, LabelNames: []string{"__name__"}}, reason: ReasonInvalidLabel},
		{name: "duplicate label", desc: Descriptor{Name: "x", Kind: KindGauge, LabelNames: []string{"a", "a"}}, reason: ReasonInvalidLabel},
		{name: "good buckets", desc: Descriptor{Name: "x", Kind: KindHistogram, Buckets: []float64{-1, 0, 0.5, 10}}},
		{name: "unsorted buckets", desc: Descriptor{Name: "x", Kind: KindHistogram, Buckets: []float64{1, 0.5}}, reason: ReasonInvalidBuckets},
		{name: "duplicate buckets", desc: Descriptor{Name: "x", Kind: KindHistogram, Buckets: []float64{1, 1}}, reason: ReasonInvalidBuckets},
		{name: "inf bucket", desc: Descriptor{Name: "x", Kind: KindHistogram, Buckets: []float64{1, math.Inf(1)}}, reason: ReasonInvalidBuckets},
		{name: "nan bucket", desc: Descriptor{Name: "x", Kind: KindHistogram, Buckets: []float64{math.NaN()}}, reason: ReasonInvalidBuckets},
		{name: "buckets ignored for gauge", desc: Descriptor{Name: "x", Kind: KindGauge, Buckets: []float64{2, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.desc)
			if tt.reason == ReasonNone {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.reason, ReasonOf(err))
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}
}

func TestValidateRejectsAnyOutOfGrammarCharacter(t *testing.T) {
	for c := 0; c < 128; c++ {
		ch := byte(c)
		valid := isAlpha(ch) || isDigit(ch) || ch == '_' || ch == ':'
		err := Validate(Descriptor{Name: "ab" + string(ch), Kind: KindGauge})
		if valid {
			assert.NoError(t, err, "char %q", ch)
		} else {
			assert.ErrorIs(t, err, ErrInvalidName, "char %q", ch)
		}
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"counter":   KindCounter,
		"Gauge":     KindGauge,
		"histogram": KindHistogram,
		"summary":   KindHistogram,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("untyped")
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	assert.Equal(t, "histogram", KindHistogram.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "metrics_server_app_requests", FullName("metrics_server", "app", "requests"))
	assert.Equal(t, "app_requests", FullName("", "app", "requests"))
	assert.Equal(t, "metrics_server_requests", FullName("metrics_server", "", "requests"))
	assert.Equal(t, "requests", FullName("", "", "requests"))
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, ReasonNone, ReasonOf(nil))
	assert.Equal(t, ReasonInternal, ReasonOf(xerrors.New("boom")))
	assert.Equal(t, ReasonKindConflict, ReasonOf(xerrors.Wrapf(ErrKindConflict, "ctx")))
	assert.ErrorIs(t, ErrCounterDecrease, xerrors.ErrConflict)
}
