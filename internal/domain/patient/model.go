package patient

import (
	"time"

	"github.com/google/uuid"
)

// Sex values.
const (
	SexMale   = "MALE"
	SexFemale = "FEMALE"
)

// Age groups. Gestational weeks are only meaningful for pregnant women.
const (
	AgeGroupToddler       = "TODDLER"
	AgeGroupChild         = "CHILD"
	AgeGroupAdult         = "ADULT"
	AgeGroupElderly       = "ELDERLY"
	AgeGroupPregnantWoman = "PREGNANT_WOMAN"
)

// ValidSexes and ValidAgeGroups are the accepted enum values.
var (
	ValidSexes     = []string{SexMale, SexFemale}
	ValidAgeGroups = []string{AgeGroupToddler, AgeGroupChild, AgeGroupAdult, AgeGroupElderly, AgeGroupPregnantWoman}
)

// Patient maps to the patient table.
type Patient struct {
	ID               uuid.UUID `db:"id" json:"id"`
	NIK              *string   `db:"nik" json:"nik,omitempty"`
	Name             string    `db:"name" json:"name"`
	Sex              string    `db:"sex" json:"sex"`
	Birthplace       string    `db:"birthplace" json:"birthplace"`
	BirthDate        time.Time `db:"birth_date" json:"birth_date"`
	Address          string    `db:"address" json:"address"`
	RT               string    `db:"rt" json:"rt"`
	RW               string    `db:"rw" json:"rw"`
	Village          string    `db:"village" json:"village"`
	District         string    `db:"district" json:"district"`
	Regency          string    `db:"regency" json:"regency"`
	Province         string    `db:"province" json:"province"`
	Religion         *string   `db:"religion" json:"religion,omitempty"`
	Occupation       *string   `db:"occupation" json:"occupation,omitempty"`
	Phone            *string   `db:"phone" json:"phone,omitempty"`
	AgeGroup         string    `db:"age_group" json:"age_group"`
	GestationalWeeks *int      `db:"gestational_weeks" json:"gestational_weeks,omitempty"`
	CreatedBy        uuid.UUID `db:"created_by" json:"created_by"`
	CreatorName      string    `db:"-" json:"creator_name,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CreateInput carries the fields accepted when registering a patient.
type CreateInput struct {
	NIK              *string   `json:"nik"`
	Name             string    `json:"name"`
	Sex              string    `json:"sex"`
	Birthplace       string    `json:"birthplace"`
	BirthDate        time.Time `json:"birth_date"`
	Address          string    `json:"address"`
	RT               string    `json:"rt"`
	RW               string    `json:"rw"`
	Village          string    `json:"village"`
	District         string    `json:"district"`
	Regency          string    `json:"regency"`
	Province         string    `json:"province"`
	Religion         *string   `json:"religion"`
	Occupation       *string   `json:"occupation"`
	Phone            *string   `json:"phone"`
	AgeGroup         string    `json:"age_group"`
	GestationalWeeks *int      `json:"gestational_weeks"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
// Empty strings for nik, religion and occupation clear the stored value.
type UpdateInput struct {
	NIK              *string    `json:"nik"`
	Name             *string    `json:"name"`
	Sex              *string    `json:"sex"`
	Birthplace       *string    `json:"birthplace"`
	BirthDate        *time.Time `json:"birth_date"`
	Address          *string    `json:"address"`
	RT               *string    `json:"rt"`
	RW               *string    `json:"rw"`
	Village          *string    `json:"village"`
	District         *string    `json:"district"`
	Regency          *string    `json:"regency"`
	Province         *string    `json:"province"`
	Religion         *string    `json:"religion"`
	Occupation       *string    `json:"occupation"`
	Phone            *string    `json:"phone"`
	AgeGroup         *string    `json:"age_group"`
	GestationalWeeks *int       `json:"gestational_weeks"`
}

// ListFilter narrows patient listings. Search matches name, NIK and
// address; From and To bound the creation timestamp inclusively.
type ListFilter struct {
	Search   string
	AgeGroup string
	Sex      string
	From     *time.Time
	To       *time.Time
}

// Stats summarizes the patient registry for dashboards.
type Stats struct {
	Total      int            `json:"total"`
	Today      int            `json:"today"`
	ThisWeek   int            `json:"this_week"`
	ThisMonth  int            `json:"this_month"`
	ByAgeGroup map[string]int `json:"by_age_group"`
	BySex      map[string]int `json:"by_sex"`
}
