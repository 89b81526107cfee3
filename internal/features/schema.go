// internal/features/schema.go
package features

import (
	"errors"
	"fmt"
	"sort"
)

// Column names as the models were trained against them. Spaces and casing are significant.
const (
	ColAge                    = "age"
	ColMonthlySalary          = "monthly_salary"
	ColYearsOfEmployment      = "years_of_employment"
	ColDependents             = "dependents"
	ColExistingLoans          = "existing_loans"
	ColCreditScore            = "credit_score"
	ColEmergencyFund          = "emergency_fund"
	ColRequestedAmount        = "requested_amount"
	ColRequestedTenure        = "requested_tenure"
	ColEducation              = "education_enc"
	ColEmploymentType         = "employment_type_enc"
	ColCompanyType            = "company_type_enc"
	ColHouseType              = "house_type_enc"
	ColScenarioEducation      = "emi_scenario_Education"
	ColScenarioHomeAppliances = "emi_scenario_Home Appliances"
	ColScenarioPersonalLoan   = "emi_scenario_Personal Loan"
	ColScenarioVehicle        = "emi_scenario_Vehicle"
	ColExpenses               = "expenses"
	ColDisposableFunds        = "disposable_funds"
)

const (
	SchemaV1 = "emi-v1"
	SchemaV2 = "emi-v2"

	DefaultSchema = SchemaV2
)

var ErrUnknownSchema = errors.New("unknown feature schema")

// Kind controls how a column value is encoded on the wire.
type Kind int

const (
	Integer Kind = iota
	Real
)

func (k Kind) String() string {
	if k == Real {
		return "double"
	}
	return "long"
}

// Column maps one ApplicantInput attribute to one named model input.
type Column struct {
	Name    string
	Kind    Kind
	extract func(ApplicantInput) float64
}

// Schema is an ordered, named set of columns. Order is part of the contract.
type Schema struct {
	Name    string
	columns []Column
}

func (s Schema) Len() int { return len(s.columns) }

func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Build projects an applicant through the schema.
func (s Schema) Build(in ApplicantInput) Record {
	values := make([]float64, len(s.columns))
	for i, c := range s.columns {
		values[i] = c.extract(in)
	}
	return Record{schema: s, values: values}
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var (
	age                    = Column{ColAge, Integer, func(in ApplicantInput) float64 { return float64(in.Age) }}
	monthlySalary          = Column{ColMonthlySalary, Integer, func(in ApplicantInput) float64 { return float64(in.MonthlySalary) }}
	yearsOfEmployment      = Column{ColYearsOfEmployment, Real, func(in ApplicantInput) float64 { return in.YearsOfEmployment }}
	dependents             = Column{ColDependents, Integer, func(in ApplicantInput) float64 { return float64(in.Dependents) }}
	existingLoans          = Column{ColExistingLoans, Integer, func(in ApplicantInput) float64 { return flag(in.ExistingLoans) }}
	creditScore            = Column{ColCreditScore, Integer, func(in ApplicantInput) float64 { return float64(in.CreditScore) }}
	emergencyFund          = Column{ColEmergencyFund, Integer, func(in ApplicantInput) float64 { return float64(in.EmergencyFund) }}
	requestedAmount        = Column{ColRequestedAmount, Integer, func(in ApplicantInput) float64 { return float64(in.RequestedAmount) }}
	requestedTenure        = Column{ColRequestedTenure, Integer, func(in ApplicantInput) float64 { return float64(in.RequestedTenureMonths) }}
	education              = Column{ColEducation, Integer, func(in ApplicantInput) float64 { return float64(in.EducationLevelCode) }}
	employmentType         = Column{ColEmploymentType, Integer, func(in ApplicantInput) float64 { return float64(in.EmploymentTypeCode) }}
	companyType            = Column{ColCompanyType, Integer, func(in ApplicantInput) float64 { return float64(in.CompanyTypeCode) }}
	houseType              = Column{ColHouseType, Integer, func(in ApplicantInput) float64 { return float64(in.HouseTypeCode) }}
	scenarioEducation      = Column{ColScenarioEducation, Integer, func(in ApplicantInput) float64 { return flag(in.Scenario.Education) }}
	scenarioHomeAppliances = Column{ColScenarioHomeAppliances, Integer, func(in ApplicantInput) float64 { return flag(in.Scenario.HomeAppliances) }}
	scenarioPersonalLoan   = Column{ColScenarioPersonalLoan, Integer, func(in ApplicantInput) float64 { return flag(in.Scenario.PersonalLoan) }}
	scenarioVehicle        = Column{ColScenarioVehicle, Integer, func(in ApplicantInput) float64 { return flag(in.Scenario.Vehicle) }}
	expenses               = Column{ColExpenses, Integer, func(in ApplicantInput) float64 { return float64(in.MonthlyExpenses) }}
	disposableFunds        = Column{ColDisposableFunds, Integer, func(in ApplicantInput) float64 { return float64(in.DisposableFunds()) }}
)

// emi-v1 is the original training frame: raw salary and expenses, no derived column.
var schemaV1 = Schema{
	Name: SchemaV1,
	columns: []Column{
		age, monthlySalary, yearsOfEmployment, dependents, existingLoans, creditScore,
		emergencyFund, requestedAmount, requestedTenure,
		education, employmentType, companyType, houseType,
		scenarioEducation, scenarioHomeAppliances, scenarioPersonalLoan, scenarioVehicle,
		expenses,
	},
}

// emi-v2 folds salary and expenses into disposable_funds, appended last.
var schemaV2 = Schema{
	Name: SchemaV2,
	columns: []Column{
		age, yearsOfEmployment, dependents, existingLoans, creditScore,
		emergencyFund, requestedAmount, requestedTenure,
		education, employmentType, companyType, houseType,
		scenarioEducation, scenarioHomeAppliances, scenarioPersonalLoan, scenarioVehicle,
		disposableFunds,
	},
}

var schemas = map[string]Schema{
	SchemaV1: schemaV1,
	SchemaV2: schemaV2,
}

// LookupSchema returns a registered schema by name. An empty name selects the default.
func LookupSchema(name string) (Schema, error) {
	if name == "" {
		name = DefaultSchema
	}
	s, ok := schemas[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownSchema, name, SchemaNames())
	}
	return s, nil
}

func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for n := range schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build maps an applicant to a record in the default schema.
func Build(in ApplicantInput) Record {
	return schemaV2.Build(in)
}
