package compliance

// Laws holds the resolved minute thresholds used by Evaluate.
type Laws struct {
	DailyOTMin             int `json:"dailyOtMin"`
	DailyDoubleMin         int `json:"dailyDoubleMin"`
	WeeklyOTMin            int `json:"weeklyOtMin"`
	RequireMealAfter       int `json:"requireMealAfter"`
	RequireSecondMealAfter int `json:"requireSecondMealAfter"`
	RestBreakPerBlock      int `json:"restBreakPerBlock"`
	MinRestBetween         int `json:"minRestBetween"`
	MinRestBetweenStrong   int `json:"minRestBetweenStrong"`
}

// LawsConfig is a partial override of the default thresholds. Nil fields keep
// the default.
type LawsConfig struct {
	DailyOTMin             *int `json:"dailyOtMin,omitempty" mapstructure:"daily_ot_min"`
	DailyDoubleMin         *int `json:"dailyDoubleMin,omitempty" mapstructure:"daily_double_min"`
	WeeklyOTMin            *int `json:"weeklyOtMin,omitempty" mapstructure:"weekly_ot_min"`
	RequireMealAfter       *int `json:"requireMealAfter,omitempty" mapstructure:"require_meal_after"`
	RequireSecondMealAfter *int `json:"requireSecondMealAfter,omitempty" mapstructure:"require_second_meal_after"`
	RestBreakPerBlock      *int `json:"restBreakPerBlock,omitempty" mapstructure:"rest_break_per_block"`
	MinRestBetween         *int `json:"minRestBetween,omitempty" mapstructure:"min_rest_between"`
	MinRestBetweenStrong   *int `json:"minRestBetweenStrong,omitempty" mapstructure:"min_rest_between_strong"`
}

// DefaultLaws returns the baseline: 8h/12h daily, 40h weekly, meals after 5h
// and 10h, 10 minutes rest per 4h block, 8h/10h between shifts.
func DefaultLaws() Laws {
	return Laws{
		DailyOTMin:             480,
		DailyDoubleMin:         720,
		WeeklyOTMin:            2400,
		RequireMealAfter:       300,
		RequireSecondMealAfter: 600,
		RestBreakPerBlock:      10,
		MinRestBetween:         480,
		MinRestBetweenStrong:   600,
	}
}

// Resolve applies cfg on top of DefaultLaws. A nil cfg yields the defaults.
func Resolve(cfg *LawsConfig) Laws {
	laws := DefaultLaws()
	if cfg == nil {
		return laws
	}
	apply := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&laws.DailyOTMin, cfg.DailyOTMin)
	apply(&laws.DailyDoubleMin, cfg.DailyDoubleMin)
	apply(&laws.WeeklyOTMin, cfg.WeeklyOTMin)
	apply(&laws.RequireMealAfter, cfg.RequireMealAfter)
	apply(&laws.RequireSecondMealAfter, cfg.RequireSecondMealAfter)
	apply(&laws.RestBreakPerBlock, cfg.RestBreakPerBlock)
	apply(&laws.MinRestBetween, cfg.MinRestBetween)
	apply(&laws.MinRestBetweenStrong, cfg.MinRestBetweenStrong)
	return laws
}

// Minutes returns a pointer to v for building LawsConfig literals.
func Minutes(v int) *int {
	return &v
}
