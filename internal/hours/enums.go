package hours

import "strconv"

// State is the condition of a resource during a time element.
type State string

const (
	StateOpen                  State = "open"
	StateClosed                State = "closed"
	StateUndefined             State = "undefined"
	StateSelfService           State = "self_service"
	StateWithKey               State = "with_key"
	StateWithReservation       State = "with_reservation"
	StateOpenAndReservable     State = "open_and_reservable"
	StateWithKeyAndReservation State = "with_key_and_reservation"
	StateEnterOnly             State = "enter_only"
	StateExitOnly              State = "exit_only"
	StateWeatherPermitting     State = "weather_permitting"
	StateNotInUse              State = "not_in_use"
	StateMaintenance           State = "maintenance"
	StateReserved              State = "reserved"
	StateByAppointment         State = "by_appointment"
	StateNoOpeningHours        State = "no_opening_hours"
)

var stateLabels = map[State]string{
	StateOpen:                  "Open",
	StateClosed:                "Closed",
	StateUndefined:             "Undefined",
	StateSelfService:           "Self service",
	StateWithKey:               "With key",
	StateWithReservation:       "With reservation",
	StateOpenAndReservable:     "Open and reservable",
	StateWithKeyAndReservation: "With key and reservation",
	StateEnterOnly:             "Enter only",
	StateExitOnly:              "Exit only",
	StateWeatherPermitting:     "Weather permitting",
	StateNotInUse:              "Not in use",
	StateMaintenance:           "Maintenance",
	StateReserved:              "Reserved",
	StateByAppointment:         "By appointment",
	StateNoOpeningHours:        "No opening hours",
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := stateLabels[s]
	return ok
}

// Label is the English display name.
func (s State) Label() string {
	if label, ok := stateLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsOpen reports whether a resource in state s counts as open to visitors.
func (s State) IsOpen() bool {
	switch s {
	case StateOpen,
		StateSelfService,
		StateWithKey,
		StateWithReservation,
		StateOpenAndReservable,
		StateWithKeyAndReservation,
		StateEnterOnly,
		StateWeatherPermitting,
		StateReserved,
		StateByAppointment:
		return true
	}
	return false
}

// Weekday is an ISO weekday, 1 for Monday through 7 for Sunday.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayLabels = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Valid reports whether w is between Monday and Sunday.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

// Label is the English display name.
func (w Weekday) Label() string {
	if !w.Valid() {
		return strconv.Itoa(int(w))
	}
	return weekdayLabels[w-1]
}

// BusinessDays returns Monday through Friday.
func BusinessDays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// Weekend returns Saturday and Sunday.
func Weekend() []Weekday {
	return []Weekday{Saturday, Sunday}
}

// ResourceType classifies resources.
type ResourceType string

const (
	ResourceTypeUnit           ResourceType = "unit"
	ResourceTypeSection        ResourceType = "section"
	ResourceTypeSpecialGroup   ResourceType = "special_group"
	ResourceTypeContact        ResourceType = "contact"
	ResourceTypeOnlineService  ResourceType = "online_service"
	ResourceTypeService        ResourceType = "service"
	ResourceTypeServiceChannel ResourceType = "service_channel"
	ResourceTypeServiceAtUnit  ResourceType = "service_at_unit"
	ResourceTypeReservable     ResourceType = "reservable"
	ResourceTypeBuilding       ResourceType = "building"
	ResourceTypeArea           ResourceType = "area"
	ResourceTypeEntrance       ResourceType = "entrance_or_exit"
)

// Valid reports whether t is a known resource type.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeUnit, ResourceTypeSection, ResourceTypeSpecialGroup, ResourceTypeContact,
		ResourceTypeOnlineService, ResourceTypeService, ResourceTypeServiceChannel,
		ResourceTypeServiceAtUnit, ResourceTypeReservable, ResourceTypeBuilding,
		ResourceTypeArea, ResourceTypeEntrance:
		return true
	}
	return false
}
