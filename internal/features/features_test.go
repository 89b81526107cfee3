package features

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createMidRangeInput() ApplicantInput {
	return ApplicantInput{
		Age:                   35,
		MonthlySalary:         80000,
		YearsOfEmployment:     6.0,
		Dependents:            1,
		ExistingLoans:         false,
		CreditScore:           750,
		RequestedAmount:       300000,
		RequestedTenureMonths: 36,
		MonthlyExpenses:       25000,
		EmergencyFund:         150000,
		EducationLevelCode:    2,
		EmploymentTypeCode:    1,
		CompanyTypeCode:       3,
		HouseTypeCode:         0,
	}
}

func intPtr(v int) *int { return &v }
func amountPtr(v int64) *int64 { return &v }
func floatPtr(v float64) *float64 { return &v }

// ==========================
// Build
// ==========================

func TestBuild_DefaultSchemaShape(t *testing.T) {
	record := Build(createMidRangeInput())

	assert.Equal(t, 17, record.Len())
	assert.Equal(t, SchemaV2, record.Schema().Name)
	assert.Equal(t, []string{
		"age",
		"years_of_employment",
		"dependents",
		"existing_loans",
		"credit_score",
		"emergency_fund",
		"requested_amount",
		"requested_tenure",
		"education_enc",
		"employment_type_enc",
		"company_type_enc",
		"house_type_enc",
		"emi_scenario_Education",
		"emi_scenario_Home Appliances",
		"emi_scenario_Personal Loan",
		"emi_scenario_Vehicle",
		"disposable_funds",
	}, record.Columns())
}

func TestBuild_DisposableFunds(t *testing.T) {
	tests := []struct {
		name     string
		salary   int64
		expenses int64
		expected float64
	}{
		{name: "mid-range applicant", salary: 80000, expenses: 25000, expected: 55000},
		{name: "no expenses", salary: 10000, expenses: 0, expected: 10000},
		{name: "expenses exceed salary", salary: 10000, expenses: 300000, expected: -290000},
		{name: "break even", salary: 45000, expenses: 45000, expected: 0},
		{name: "upper bound salary", salary: 500000, expenses: 1, expected: 499999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createMidRangeInput()
			in.MonthlySalary = tt.salary
			in.MonthlyExpenses = tt.expenses

			got, ok := Build(in).Get(ColDisposableFunds)
			require.True(t, ok)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, float64(tt.salary-tt.expenses), got)
		})
	}
}

func TestBuild_PassesValuesThroughVerbatim(t *testing.T) {
	in := createMidRangeInput()
	in.YearsOfEmployment = 12.5
	record := Build(in)

	expected := map[string]float64{
		ColAge:               35,
		ColYearsOfEmployment: 12.5,
		ColDependents:        1,
		ColExistingLoans:     0,
		ColCreditScore:       750,
		ColEmergencyFund:     150000,
		ColRequestedAmount:   300000,
		ColRequestedTenure:   36,
		ColEducation:         2,
		ColEmploymentType:    1,
		ColCompanyType:       3,
		ColHouseType:         0,
		ColDisposableFunds:   55000,
	}
	for col, want := range expected {
		got, ok := record.Get(col)
		require.True(t, ok, "column %s missing", col)
		assert.Equal(t, want, got, "column %s", col)
	}
}

func TestBuild_ScenarioFlagsAreIndependent(t *testing.T) {
	cols := []string{ColScenarioEducation, ColScenarioHomeAppliances, ColScenarioPersonalLoan, ColScenarioVehicle}

	for mask := 0; mask < 16; mask++ {
		in := createMidRangeInput()
		in.Scenario = EMIScenario{
			Education:      mask&1 != 0,
			HomeAppliances: mask&2 != 0,
			PersonalLoan:   mask&4 != 0,
			Vehicle:        mask&8 != 0,
		}
		record := Build(in)

		for bit, col := range cols {
			want := 0.0
			if mask&(1<<bit) != 0 {
				want = 1
			}
			got, ok := record.Get(col)
			require.True(t, ok)
			assert.Equal(t, want, got, "mask %04b column %s", mask, col)
		}
	}
}

func TestBuild_ExistingLoansCoercion(t *testing.T) {
	in := createMidRangeInput()

	in.ExistingLoans = true
	got, _ := Build(in).Get(ColExistingLoans)
	assert.Equal(t, 1.0, got)

	in.ExistingLoans = false
	got, _ = Build(in).Get(ColExistingLoans)
	assert.Equal(t, 0.0, got)
}

func TestBuild_Idempotent(t *testing.T) {
	in := createMidRangeInput()
	in.Scenario.Vehicle = true

	first := Build(in)
	second := Build(in)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Values(), second.Values())
	assert.Equal(t, first.Columns(), second.Columns())
}

func TestRecord_ValuesAreCopies(t *testing.T) {
	record := Build(createMidRangeInput())
	values := record.Values()
	values[0] = 99

	got, _ := record.Get(ColAge)
	assert.Equal(t, 35.0, got)
}

func TestRecord_EqualDetectsDifferences(t *testing.T) {
	in := createMidRangeInput()
	base := Build(in)

	in.CreditScore = 751
	assert.False(t, base.Equal(Build(in)))

	v1, err := LookupSchema(SchemaV1)
	require.NoError(t, err)
	assert.False(t, base.Equal(v1.Build(createMidRangeInput())))
}

// ==========================
// Schemas
// ==========================

func TestLookupSchema(t *testing.T) {
	def, err := LookupSchema("")
	require.NoError(t, err)
	assert.Equal(t, SchemaV2, def.Name)

	v1, err := LookupSchema(SchemaV1)
	require.NoError(t, err)
	assert.Equal(t, 18, v1.Len())

	_, err = LookupSchema("emi-v9")
	assert.ErrorIs(t, err, ErrUnknownSchema)
	assert.Equal(t, []string{SchemaV1, SchemaV2}, SchemaNames())
}

func TestSchemaV1_MatchesTrainingFrame(t *testing.T) {
	v1, err := LookupSchema(SchemaV1)
	require.NoError(t, err)

	record := v1.Build(createMidRangeInput())
	assert.Equal(t, []string{
		"age", "monthly_salary", "years_of_employment", "dependents", "existing_loans",
		"credit_score", "emergency_fund", "requested_amount", "requested_tenure",
		"education_enc", "employment_type_enc", "company_type_enc", "house_type_enc",
		"emi_scenario_Education", "emi_scenario_Home Appliances", "emi_scenario_Personal Loan",
		"emi_scenario_Vehicle", "expenses",
	}, record.Columns())

	salary, _ := record.Get(ColMonthlySalary)
	expenses, _ := record.Get(ColExpenses)
	assert.Equal(t, 80000.0, salary)
	assert.Equal(t, 25000.0, expenses)

	_, ok := record.Get(ColDisposableFunds)
	assert.False(t, ok)
}

// ==========================
// Wire encoding
// ==========================

func TestRecord_DataFrameSplit(t *testing.T) {
	in := createMidRangeInput()
	in.YearsOfEmployment = 6.5
	record := Build(in)

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded struct {
		Columns []string        `json:"columns"`
		Data    [][]json.Number `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, record.Columns(), decoded.Columns)
	require.Len(t, decoded.Data, 1)
	require.Len(t, decoded.Data[0], 17)
	assert.Equal(t, "35", decoded.Data[0][0].String())
	assert.Equal(t, "6.5", decoded.Data[0][1].String())
	assert.Equal(t, "55000", decoded.Data[0][16].String())
}

// ==========================
// Form conversion
// ==========================

func TestApplicantForm_ToInput(t *testing.T) {
	form := ApplicantForm{
		Age:                   intPtr(35),
		MonthlySalary:         amountPtr(80000),
		YearsOfEmployment:     floatPtr(6),
		Dependents:            intPtr(0),
		ExistingLoans:         intPtr(1),
		CreditScore:           intPtr(750),
		RequestedAmount:       amountPtr(300000),
		RequestedTenureMonths: intPtr(36),
		MonthlyExpenses:       amountPtr(25000),
		EmergencyFund:         amountPtr(0),
		EducationLevel:        intPtr(4),
		EmploymentType:        intPtr(2),
		CompanyType:           intPtr(0),
		HouseType:             intPtr(3),
		EMIScenario:           EMIScenario{PersonalLoan: true},
	}

	in, err := form.ToInput()
	require.NoError(t, err)
	assert.True(t, in.ExistingLoans)
	assert.Equal(t, 0, in.Dependents)
	assert.Equal(t, int64(55000), in.DisposableFunds())
	assert.True(t, in.Scenario.PersonalLoan)
	assert.False(t, in.Scenario.Vehicle)
}

func TestApplicantForm_ToInputMissingFields(t *testing.T) {
	form := ApplicantForm{Age: intPtr(40)}

	_, err := form.ToInput()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteForm)
	assert.Contains(t, err.Error(), "monthlySalary")
	assert.Contains(t, err.Error(), "yearsOfEmployment")
}
