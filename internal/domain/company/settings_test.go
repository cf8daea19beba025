package company

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, SettingsVersion, s.Version)
	assert.True(t, decimal.RequireFromString("7.5").Equal(s.WorkHoursPerDay))
	assert.True(t, decimal.NewFromInt(22).Equal(s.WorkDaysPerMonth))
	assert.True(t, s.Statutory.OnCommission)
	assert.False(t, s.Statutory.OnAllowance)
	assert.False(t, s.Statutory.OnOT)
	assert.False(t, s.Statutory.OnPHPay)
	assert.False(t, s.Statutory.OnIncentive)
	assert.Equal(t, 10, s.Attendance.GraceMinutes)
	assert.Equal(t, 120, s.Attendance.WrongShiftToleranceMinutes)
	assert.True(t, decimal.RequireFromString("0.05").Equal(s.Automation.VarianceThreshold))
	assert.True(t, s.Overtime.RequiresApproval)
}

func TestSettingsMerge(t *testing.T) {
	base := DefaultSettings()
	grace := 5
	onAllowance := true
	rate := decimal.NewFromInt(12)

	merged := base.Merge(SettingsPatch{
		GraceMinutes:          &grace,
		StatutoryOnAllowance:  &onAllowance,
		PartTimeHourlyRate:    &rate,
		AutoApproveCategories: []string{"meal", "parking"},
		CategoryCaps:          map[string]decimal.Decimal{"meal": decimal.NewFromInt(50)},
	})

	assert.Equal(t, 5, merged.Attendance.GraceMinutes)
	assert.True(t, merged.Statutory.OnAllowance)
	require.NotNil(t, merged.PartTimeHourlyRate)
	assert.True(t, rate.Equal(*merged.PartTimeHourlyRate))
	assert.Equal(t, []string{"meal", "parking"}, merged.Claims.AutoApproveCategories)
	assert.True(t, decimal.NewFromInt(50).Equal(merged.Claims.CategoryCaps["meal"]))

	// untouched fields keep their value and the source is not mutated
	assert.Equal(t, 120, merged.Attendance.WrongShiftToleranceMinutes)
	assert.Equal(t, 10, base.Attendance.GraceMinutes)
	assert.False(t, base.Statutory.OnAllowance)
	assert.Empty(t, base.Claims.AutoApproveCategories)
}

func TestSettingsMerge_ZeroHourlyRateClears(t *testing.T) {
	rate := decimal.NewFromInt(12)
	s := DefaultSettings().Merge(SettingsPatch{PartTimeHourlyRate: &rate})
	zero := decimal.Zero
	s = s.Merge(SettingsPatch{PartTimeHourlyRate: &zero})
	assert.Nil(t, s.PartTimeHourlyRate)
}

func TestSettingsPatchValidate(t *testing.T) {
	day := 31
	neg := decimal.NewFromInt(-1)
	p := SettingsPatch{PayrollAutoGenerateDay: &day, WorkDaysPerMonth: &neg}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payroll_auto_generate_day")
	assert.Contains(t, err.Error(), "work_days_per_month")

	assert.NoError(t, (&SettingsPatch{}).Validate())
}

func TestPayrollStructure(t *testing.T) {
	floor := decimal.NewFromInt(1500)
	p := &PayrollStructure{Components: []StructureComponent{
		{Code: ComponentBasicSalary, Mode: ModeFixed, Enabled: true},
		{Code: ComponentCommission, Mode: ModeHigherOfBasicOrPct, Enabled: true, Floor: &floor},
		{Code: ComponentBonus, Mode: ModeFixed, Enabled: false},
	}}

	assert.Len(t, p.Enabled(), 2)
	assert.True(t, p.HigherOf())
	_, ok := p.Component(ComponentBonus)
	assert.False(t, ok)

	var nilStructure *PayrollStructure
	assert.Empty(t, nilStructure.Enabled())
	assert.False(t, nilStructure.HigherOf())
}

func TestParseEnums(t *testing.T) {
	_, err := ParseGroupingType("region")
	assert.Error(t, err)
	g, err := ParseGroupingType("outlet")
	require.NoError(t, err)
	assert.Equal(t, GroupingOutlet, g)

	_, err = ParseCalculationMode("weird")
	assert.Error(t, err)
	_, err = ParseComponentCode("tips")
	assert.Error(t, err)
}
