package importer

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
	"github.com/City-of-Helsinki/hauki-sub000/internal/recurrence"
)

// Batch is everything one source yields for one data source.
type Batch struct {
	DataSource persistence.DataSource `yaml:"data_source"`
	Resources  []ResourceData         `yaml:"resources"`
	Periods    []PeriodData           `yaml:"periods"`
}

// OriginData identifies a record in its data source.
type OriginData struct {
	DataSourceID string `yaml:"data_source_id" validate:"required"`
	OriginID     string `yaml:"origin_id" validate:"required"`
}

func (o OriginData) origin() persistence.Origin {
	return persistence.Origin{DataSourceID: o.DataSourceID, OriginID: o.OriginID}
}

func (o OriginData) String() string {
	return o.DataSourceID + ":" + o.OriginID
}

// ResourceData is an imported resource. Parents refer to other imported
// resources by origin.
type ResourceData struct {
	Origins      []OriginData `yaml:"origins" validate:"required,min=1,dive"`
	Name         string       `yaml:"name" validate:"required"`
	Description  string       `yaml:"description"`
	Address      string       `yaml:"address"`
	ResourceType string       `yaml:"resource_type" validate:"omitempty,resource_type"`
	Organization string       `yaml:"organization"`
	Timezone     string       `yaml:"timezone" validate:"omitempty,timezone"`
	IsPublic     *bool        `yaml:"is_public"`
	Parents      []OriginData `yaml:"parents" validate:"dive"`
}

// PeriodData is an imported date period with its full tree.
type PeriodData struct {
	Origins       []OriginData `yaml:"origins" validate:"required,min=1,dive"`
	Resource      OriginData   `yaml:"resource"`
	Name          string       `yaml:"name"`
	Description   string       `yaml:"description"`
	StartDate     string       `yaml:"start_date" validate:"omitempty,civil_date"`
	EndDate       string       `yaml:"end_date" validate:"omitempty,civil_date"`
	ResourceState string       `yaml:"resource_state" validate:"omitempty,state"`
	Override      bool         `yaml:"override"`
	Groups        []GroupData  `yaml:"time_span_groups" validate:"dive"`
}

// GroupData is one time span group of an imported period.
type GroupData struct {
	TimeSpans []TimeSpanData `yaml:"time_spans" validate:"dive"`
	Rules     []RuleData     `yaml:"rules" validate:"dive"`
}

// TimeSpanData is an imported time span. Times are HH:MM or HH:MM:SS.
type TimeSpanData struct {
	Name             string `yaml:"name"`
	Description      string `yaml:"description"`
	StartTime        string `yaml:"start_time" validate:"omitempty,clock"`
	EndTime          string `yaml:"end_time" validate:"omitempty,clock"`
	EndTimeOnNextDay *bool  `yaml:"end_time_on_next_day"`
	FullDay          bool   `yaml:"full_day"`
	Weekdays         []int  `yaml:"weekdays" validate:"dive,min=1,max=7"`
	ResourceState    string `yaml:"resource_state" validate:"omitempty,state"`
}

// RuleData is an imported rule.
type RuleData struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Context           string `yaml:"context" validate:"required,oneof=period year month"`
	Subject           string `yaml:"subject" validate:"required,oneof=day week month mon tue wed thu fri sat sun"`
	Start             *int   `yaml:"start"`
	FrequencyOrdinal  *int   `yaml:"frequency_ordinal" validate:"omitempty,min=1"`
	FrequencyModifier string `yaml:"frequency_modifier" validate:"omitempty,oneof=even odd"`
}

// NewValidator returns a validator knowing the domain tags used by the
// payload types.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("state", func(fl validator.FieldLevel) bool {
		return hours.State(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("resource_type", func(fl validator.FieldLevel) bool {
		return hours.ResourceType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("civil_date", func(fl validator.FieldLevel) bool {
		_, err := civil.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := parseClock(fl.Field().String())
		return err == nil
	})
	return v
}

// validateRecord runs v over record and converts failures to a PayloadError.
func validateRecord(v *validator.Validate, name string, record any) error {
	err := v.Struct(record)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("importer: validate %s: %w", name, err)
	}
	payloadErr := &PayloadError{Record: name, Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		reason := "is invalid (" + fe.Tag() + ")"
		if fe.Tag() == "required" {
			reason = "is required"
		}
		payloadErr.Fields[field] = reason
	}
	return payloadErr
}

func parseClock(s string) (civil.Time, error) {
	if strings.Count(s, ":") == 1 {
		s += ":00"
	}
	return civil.ParseTime(s)
}

func parseOptionalDate(s string) (*civil.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalClock(s string) (*civil.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseClock(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func origins(data []OriginData) []persistence.Origin {
	out := make([]persistence.Origin, 0, len(data))
	for _, o := range data {
		out = append(out, o.origin())
	}
	return out
}

// resource converts the payload into a resource record. Empty type and
// timezone fall back to a unit in defaultZone; a missing is_public means
// public.
func (d ResourceData) resource(defaultZone string) persistence.Resource {
	resource := persistence.Resource{
		Name:         cleanText(d.Name),
		Description:  cleanText(d.Description),
		Address:      cleanText(d.Address),
		ResourceType: hours.ResourceType(d.ResourceType),
		Organization: d.Organization,
		Timezone:     d.Timezone,
		IsPublic:     true,
		Origins:      origins(d.Origins),
	}
	if resource.ResourceType == "" {
		resource.ResourceType = hours.ResourceTypeUnit
	}
	if resource.Timezone == "" {
		resource.Timezone = defaultZone
	}
	if d.IsPublic != nil {
		resource.IsPublic = *d.IsPublic
	}
	return resource
}

// period converts the payload into a period tree owned by resourceID.
func (d PeriodData) period(resourceID string) (persistence.DatePeriod, error) {
	start, err := parseOptionalDate(d.StartDate)
	if err != nil {
		return persistence.DatePeriod{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseOptionalDate(d.EndDate)
	if err != nil {
		return persistence.DatePeriod{}, fmt.Errorf("end_date: %w", err)
	}

	state := hours.State(d.ResourceState)
	if state == "" {
		state = hours.StateUndefined
	}
	period := persistence.DatePeriod{
		DatePeriod: hours.DatePeriod{
			ResourceID:    resourceID,
			Name:          cleanText(d.Name),
			Description:   cleanText(d.Description),
			StartDate:     start,
			EndDate:       end,
			ResourceState: state,
			Override:      d.Override,
		},
		Origins: origins(d.Origins),
	}

	for gi, g := range d.Groups {
		var group hours.TimeSpanGroup
		for si, s := range g.TimeSpans {
			span, err := s.timeSpan()
			if err != nil {
				return persistence.DatePeriod{}, fmt.Errorf("time_span_groups[%d].time_spans[%d]: %w", gi, si, err)
			}
			group.TimeSpans = append(group.TimeSpans, span)
		}
		for _, r := range g.Rules {
			group.Rules = append(group.Rules, r.rule())
		}
		period.Groups = append(period.Groups, group)
	}
	return period, nil
}

func (d TimeSpanData) timeSpan() (hours.TimeSpan, error) {
	start, err := parseOptionalClock(d.StartTime)
	if err != nil {
		return hours.TimeSpan{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := parseOptionalClock(d.EndTime)
	if err != nil {
		return hours.TimeSpan{}, fmt.Errorf("end_time: %w", err)
	}
	state := hours.State(d.ResourceState)
	if state == "" {
		state = hours.StateUndefined
	}
	span := hours.TimeSpan{
		Name:          cleanText(d.Name),
		Description:   cleanText(d.Description),
		StartTime:     start,
		EndTime:       end,
		FullDay:       d.FullDay,
		ResourceState: state,
	}
	if d.EndTimeOnNextDay != nil {
		span.EndTimeOnNextDay = *d.EndTimeOnNextDay
	} else {
		span.EndTimeOnNextDay = hours.DeriveEndTimeOnNextDay(start, end)
	}
	for _, w := range d.Weekdays {
		span.Weekdays = append(span.Weekdays, hours.Weekday(w))
	}
	return span, nil
}

func (d RuleData) rule() recurrence.Rule {
	return recurrence.Rule{
		Name:              cleanText(d.Name),
		Description:       cleanText(d.Description),
		Context:           recurrence.Context(d.Context),
		Subject:           recurrence.Subject(d.Subject),
		Start:             d.Start,
		FrequencyOrdinal:  d.FrequencyOrdinal,
		FrequencyModifier: recurrence.Modifier(d.FrequencyModifier),
	}
}

// cleanText collapses whitespace runs and drops characters sources use
// as padding.
func cleanText(s string) string {
	s = strings.NewReplacer("\u00a0", " ", "\x1f", "", "\x00", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
