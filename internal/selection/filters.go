package selection

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/strategyconfig"
)

// Profitability filters on the latest reported quarter's net income
type Profitability string

const (
	ProfitabilityAll          Profitability = "all"
	ProfitabilityProfitable   Profitability = "profitable"
	ProfitabilityUnprofitable Profitability = "unprofitable"
)

// BreakoutStrategy selects which breakout flag is required
type BreakoutStrategy string

const (
	BreakoutNone      BreakoutStrategy = ""
	BreakoutConfirmed BreakoutStrategy = "confirmed"
	BreakoutRetest    BreakoutStrategy = "retest"
)

// Growth bounds
const (
	MinGrowthQuarters = 2
	MaxGrowthQuarters = 8
	MaxGrowthRate     = 1000
	MinLookbackDays   = 1
	MaxLookbackDays   = 60
)

// Filters is the full screener input. Every field is optional: a false
// toggle or a null threshold leaves that dimension unconstrained.
type Filters struct {
	// 이평 상태
	Ordered     bool `json:"ordered"`
	GoldenCross bool `json:"goldenCross"`
	JustTurned  bool `json:"justTurned"`
	MA20Above   bool `json:"ma20Above"`
	MA50Above   bool `json:"ma50Above"`
	MA100Above  bool `json:"ma100Above"`
	MA200Above  bool `json:"ma200Above"`

	// 펀더멘털
	TurnAround            bool          `json:"turnAround"`
	RevenueGrowth         bool          `json:"revenueGrowth"`
	IncomeGrowth          bool          `json:"incomeGrowth"`
	PEGFilter             bool          `json:"pegFilter"`
	Profitability         Profitability `json:"profitability"`
	RevenueGrowthQuarters int           `json:"revenueGrowthQuarters"`
	IncomeGrowthQuarters  int           `json:"incomeGrowthQuarters"`
	RevenueGrowthRate     null.Float    `json:"revenueGrowthRate"`
	IncomeGrowthRate      null.Float    `json:"incomeGrowthRate"`

	// 노이즈/돌파
	VolumeFilter        bool             `json:"volumeFilter"`
	VCPFilter           bool             `json:"vcpFilter"`
	BodyFilter          bool             `json:"bodyFilter"`
	MAConvergenceFilter bool             `json:"maConvergenceFilter"`
	BreakoutStrategy    BreakoutStrategy `json:"breakoutStrategy"`

	// 스칼라
	MinMcap      null.Float `json:"minMcap"`
	MinPrice     null.Float `json:"minPrice"`
	MinAvgVol    null.Float `json:"minAvgVol"`
	LookbackDays int        `json:"lookbackDays"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// MADependent reports whether any filter reads daily_ma
func (f Filters) MADependent() bool {
	return f.Ordered || f.GoldenCross || f.JustTurned ||
		f.MA20Above || f.MA50Above || f.MA100Above || f.MA200Above
}

// NoiseDependent reports whether any filter reads noise_signals
func (f Filters) NoiseDependent() bool {
	return f.VolumeFilter || f.VCPFilter || f.BodyFilter || f.MAConvergenceFilter
}

// WithDefaults fills unset counts from the thresholds.
// Quarter counts are defaulted only for active growth toggles.
func (f Filters) WithDefaults(cfg strategyconfig.Screener) Filters {
	if f.Profitability == "" {
		f.Profitability = ProfitabilityAll
	}
	if f.LookbackDays == 0 {
		f.LookbackDays = cfg.DefaultLookbackDays
	}
	if f.RevenueGrowth && f.RevenueGrowthQuarters == 0 {
		f.RevenueGrowthQuarters = cfg.DefaultGrowthQuarters
	}
	if f.IncomeGrowth && f.IncomeGrowthQuarters == 0 {
		f.IncomeGrowthQuarters = cfg.DefaultGrowthQuarters
	}
	if f.Limit == 0 {
		f.Limit = cfg.DefaultLimit
	}
	return f
}

// Validate rejects out-of-range values. Nothing is clamped.
func (f Filters) Validate(cfg strategyconfig.Screener) error {
	switch f.Profitability {
	case "", ProfitabilityAll, ProfitabilityProfitable, ProfitabilityUnprofitable:
	default:
		return invalid("profitability", string(f.Profitability), "must be all, profitable or unprofitable")
	}
	switch f.BreakoutStrategy {
	case BreakoutNone, BreakoutConfirmed, BreakoutRetest:
	default:
		return invalid("breakoutStrategy", string(f.BreakoutStrategy), "must be confirmed, retest or null")
	}

	if err := checkQuarters("revenueGrowthQuarters", f.RevenueGrowthQuarters); err != nil {
		return err
	}
	if err := checkQuarters("incomeGrowthQuarters", f.IncomeGrowthQuarters); err != nil {
		return err
	}
	if err := checkRate("revenueGrowthRate", f.RevenueGrowthRate); err != nil {
		return err
	}
	if err := checkRate("incomeGrowthRate", f.IncomeGrowthRate); err != nil {
		return err
	}

	minimums := []struct {
		field string
		v     null.Float
	}{{"minMcap", f.MinMcap}, {"minPrice", f.MinPrice}, {"minAvgVol", f.MinAvgVol}}
	for _, m := range minimums {
		if m.v.Valid && (!finite(m.v.Float64) || m.v.Float64 < 0) {
			return invalid(m.field, formatFloat(m.v.Float64), "must be a non-negative number")
		}
	}

	if f.LookbackDays != 0 && (f.LookbackDays < MinLookbackDays || f.LookbackDays > MaxLookbackDays) {
		return invalid("lookbackDays", strconv.Itoa(f.LookbackDays), "must be between 1 and 60")
	}
	if f.Limit < 0 || (cfg.MaxLimit > 0 && f.Limit > cfg.MaxLimit) {
		return invalid("limit", strconv.Itoa(f.Limit), "must be between 1 and "+strconv.Itoa(cfg.MaxLimit))
	}
	if f.Offset < 0 {
		return invalid("offset", strconv.Itoa(f.Offset), "must be non-negative")
	}
	return nil
}

func checkQuarters(field string, q int) error {
	if q != 0 && (q < MinGrowthQuarters || q > MaxGrowthQuarters) {
		return invalid(field, strconv.Itoa(q), "must be between 2 and 8")
	}
	return nil
}

func checkRate(field string, r null.Float) error {
	if r.Valid && (!finite(r.Float64) || r.Float64 < 0 || r.Float64 > MaxGrowthRate) {
		return invalid(field, formatFloat(r.Float64), "must be a number between 0 and 1000")
	}
	return nil
}

// Hash is the canonical cache key of the normalized filters
func (f Filters) Hash() string {
	data, _ := json.Marshal(f) // struct of scalars, cannot fail
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

// ParseFilters reads flat query parameters. Unknown keys, unparseable
// values and repeated keys are rejected before any query is built.
func ParseFilters(values url.Values) (Filters, error) {
	var f Filters

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys) // 에러 메시지 결정성

	for _, key := range keys {
		vals := values[key]
		if len(vals) > 1 {
			return Filters{}, invalid(key, strings.Join(vals, ","), "given more than once")
		}
		raw := strings.TrimSpace(vals[0])

		if target := f.boolField(key); target != nil {
			if raw == "" {
				continue
			}
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return Filters{}, invalid(key, raw, "must be true or false")
			}
			*target = b
			continue
		}

		var err error
		switch key {
		case "profitability":
			f.Profitability = Profitability(strings.ToLower(raw))
		case "breakoutStrategy":
			s := strings.ToLower(raw)
			if s == "null" {
				s = ""
			}
			f.BreakoutStrategy = BreakoutStrategy(s)
		case "minMcap":
			f.MinMcap, err = parseFloat(key, raw)
		case "minPrice":
			f.MinPrice, err = parseFloat(key, raw)
		case "minAvgVol":
			f.MinAvgVol, err = parseFloat(key, raw)
		case "revenueGrowthRate":
			f.RevenueGrowthRate, err = parseFloat(key, raw)
		case "incomeGrowthRate":
			f.IncomeGrowthRate, err = parseFloat(key, raw)
		case "lookbackDays":
			f.LookbackDays, err = parseBounded(key, raw, MinLookbackDays, MaxLookbackDays)
		case "revenueGrowthQuarters":
			f.RevenueGrowthQuarters, err = parseBounded(key, raw, MinGrowthQuarters, MaxGrowthQuarters)
		case "incomeGrowthQuarters":
			f.IncomeGrowthQuarters, err = parseBounded(key, raw, MinGrowthQuarters, MaxGrowthQuarters)
		case "limit":
			f.Limit, err = parseInt(key, raw)
		case "offset":
			f.Offset, err = parseInt(key, raw)
		default:
			return Filters{}, invalid(key, raw, "unknown filter")
		}
		if err != nil {
			return Filters{}, err
		}
	}

	return f, nil
}

func (f *Filters) boolField(key string) *bool {
	switch key {
	case "ordered":
		return &f.Ordered
	case "goldenCross":
		return &f.GoldenCross
	case "justTurned":
		return &f.JustTurned
	case "turnAround":
		return &f.TurnAround
	case "revenueGrowth":
		return &f.RevenueGrowth
	case "incomeGrowth":
		return &f.IncomeGrowth
	case "pegFilter":
		return &f.PEGFilter
	case "ma20Above":
		return &f.MA20Above
	case "ma50Above":
		return &f.MA50Above
	case "ma100Above":
		return &f.MA100Above
	case "ma200Above":
		return &f.MA200Above
	case "volumeFilter":
		return &f.VolumeFilter
	case "vcpFilter":
		return &f.VCPFilter
	case "bodyFilter":
		return &f.BodyFilter
	case "maConvergenceFilter":
		return &f.MAConvergenceFilter
	}
	return nil
}

// parseFloat treats "" and "null" as unset
func parseFloat(field, raw string) (null.Float, error) {
	if raw == "" || strings.EqualFold(raw, "null") {
		return null.Float{}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(v) {
		return null.Float{}, invalid(field, raw, "must be a number")
	}
	return null.FloatFrom(v), nil
}

func parseInt(field, raw string) (int, error) {
	if raw == "" || strings.EqualFold(raw, "null") {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid(field, raw, "must be an integer")
	}
	return v, nil
}

// parseBounded rejects an explicit value outside [lo, hi], including 0
func parseBounded(field, raw string, lo, hi int) (int, error) {
	if raw == "" || strings.EqualFold(raw, "null") {
		return 0, nil
	}
	v, err := parseInt(field, raw)
	if err != nil {
		return 0, err
	}
	if v < lo || v > hi {
		return 0, invalid(field, raw, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
	return v, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
