package http

import (
	"time"

	"github.com/golang-sql/civil"

	"github.com/City-of-Helsinki/hauki-sub000/internal/hours"
	"github.com/City-of-Helsinki/hauki-sub000/internal/persistence"
)

type timeElementDTO struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	StartTime        *string  `json:"start_time"`
	EndTime          *string  `json:"end_time"`
	EndTimeOnNextDay bool     `json:"end_time_on_next_day"`
	ResourceState    string   `json:"resource_state"`
	FullDay          bool     `json:"full_day"`
	Periods          []string `json:"periods"`
}

type dailyOpeningHoursDTO struct {
	Date  string           `json:"date"`
	Times []timeElementDTO `json:"times"`
}

type originDTO struct {
	DataSourceID string `json:"data_source_id"`
	OriginID     string `json:"origin_id"`
}

type resourceDTO struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Address      string      `json:"address"`
	ResourceType string      `json:"resource_type"`
	Organization string      `json:"organization,omitempty"`
	Timezone     string      `json:"timezone"`
	IsPublic     bool        `json:"is_public"`
	Origins      []originDTO `json:"origins"`
}

type isOpenNowResponse struct {
	IsOpen                        bool             `json:"is_open"`
	ResourceTimezone              string           `json:"resource_timezone"`
	ResourceTimeNow               time.Time        `json:"resource_time_now"`
	MatchingOpeningHours          []timeElementDTO `json:"matching_opening_hours"`
	OtherTimezone                 string           `json:"other_timezone,omitempty"`
	OtherTimezoneTimeNow          *time.Time       `json:"other_timezone_time_now,omitempty"`
	MatchingOpeningHoursInOtherTZ []timeElementDTO `json:"matching_opening_hours_in_other_tz,omitempty"`
	Resource                      resourceDTO      `json:"resource"`
}

type datePeriodsAsTextResponse struct {
	DatePeriodsHash   string `json:"date_periods_hash"`
	DatePeriodsAsText string `json:"date_periods_as_text"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func clockString(t *civil.Time) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

func toTimeElementDTO(el hours.TimeElement) timeElementDTO {
	periods := make([]string, 0, len(el.Periods))
	for _, p := range el.Periods {
		periods = append(periods, p.ID)
	}
	return timeElementDTO{
		Name:             el.Name,
		Description:      el.Description,
		StartTime:        clockString(el.StartTime),
		EndTime:          clockString(el.EndTime),
		EndTimeOnNextDay: el.EndTimeOnNextDay,
		ResourceState:    string(el.State),
		FullDay:          el.FullDay,
		Periods:          periods,
	}
}

// toZonedDTO renders an interval re-expressed in another zone: times are
// read off the shifted instants and the end moves to the next day when
// the shift crosses midnight.
func toZonedDTO(iv hours.Interval) timeElementDTO {
	dto := toTimeElementDTO(iv.Element)
	start := civil.TimeOf(iv.Start)
	end := civil.TimeOf(iv.End)
	dto.StartTime = clockString(&start)
	dto.EndTime = clockString(&end)
	dto.EndTimeOnNextDay = civil.DateOf(iv.Start) != civil.DateOf(iv.End)
	return dto
}

func toDailyDTOs(days hours.OpeningHours) []dailyOpeningHoursDTO {
	out := make([]dailyOpeningHoursDTO, 0, len(days))
	for _, day := range days {
		times := make([]timeElementDTO, 0, len(day.Elements))
		for _, el := range day.Elements {
			times = append(times, toTimeElementDTO(el))
		}
		out = append(out, dailyOpeningHoursDTO{Date: day.Date.String(), Times: times})
	}
	return out
}

func toResourceDTO(r persistence.Resource) resourceDTO {
	origins := make([]originDTO, 0, len(r.Origins))
	for _, o := range r.Origins {
		origins = append(origins, originDTO{DataSourceID: o.DataSourceID, OriginID: o.OriginID})
	}
	return resourceDTO{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Address:      r.Address,
		ResourceType: string(r.ResourceType),
		Organization: r.Organization,
		Timezone:     r.Timezone,
		IsPublic:     r.IsPublic,
		Origins:      origins,
	}
}
