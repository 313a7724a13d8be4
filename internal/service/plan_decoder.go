// internal/service/plan_decoder.go
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/deweiiss/sportMe-sub001/internal/domain"
)

// Warning codes reported by the plan decoder. None of them are fatal.
const (
	WarnMissingSegmentSeparator = "missing_segment_separator"
	WarnInsufficientSegments    = "insufficient_segments"
	WarnInvalidSegment          = "invalid_segment"
	WarnInvalidField            = "invalid_field"
	WarnInvalidDay              = "invalid_day"
	WarnInvalidWeek             = "invalid_week"
	WarnWeekOrder               = "week_order"
	WarnZoneOutOfRange          = "zone_out_of_range"
	WarnDayIndexConvention      = "day_index_convention"
)

const (
	flatDayFields       = 8 // 7 scalar fields + the segments tail
	flatFieldSeparator  = "|"
	segmentSeparator    = "||"
	segmentTypeSplitter = ":"
	minRunSegments      = 3
	minZone             = 1
	maxZone             = 5
)

// segmentKeys lists the keys a structured day may carry its segments
// under, in priority order. The first one present wins.
var segmentKeys = []string{"workout_structure", "workouts", "segments"}

// MalformedPlanError is returned when the payload lacks one of the required
// root sections. It is the only fatal decoding error besides invalid JSON.
type MalformedPlanError struct {
	Missing []string
}

func (e *MalformedPlanError) Error() string {
	return "malformed plan: missing " + strings.Join(e.Missing, ", ")
}

// PlanDecoder turns generator output into a canonical domain.Plan.
type PlanDecoder interface {
	// DecodePlan decodes raw JSON. Deeper problems are recovered from and
	// reported as warnings; the input is never modified.
	DecodePlan(raw []byte) (*domain.Plan, []domain.DecodeWarning, error)
}

type planDecoder struct{}

// NewPlanDecoder creates a new PlanDecoder.
func NewPlanDecoder() PlanDecoder {
	return &planDecoder{}
}

type rawPlan struct {
	Meta                  json.RawMessage `json:"meta"`
	PeriodizationOverview json.RawMessage `json:"periodization_overview"`
	Schedule              json.RawMessage `json:"schedule"`
}

type rawWeek struct {
	WeekNumber  jsonScalar        `json:"week_number"`
	PhaseName   string            `json:"phase_name"`
	WeeklyFocus string            `json:"weekly_focus"`
	Days        []json.RawMessage `json:"days"`
}

type rawDay struct {
	DayName                   string                  `json:"day_name"`
	DayIndex                  jsonScalar              `json:"day_index"`
	IsRestDay                 jsonScalar              `json:"is_rest_day"`
	IsCompleted               jsonScalar              `json:"is_completed"`
	IsMissed                  jsonScalar              `json:"is_missed"`
	MatchedActivityID         domain.ActivityRef      `json:"matched_activity_id"`
	ActivityCategory          domain.ActivityCategory `json:"activity_category"`
	ActivityTitle             string                  `json:"activity_title"`
	TotalEstimatedDurationMin jsonScalar              `json:"total_estimated_duration_min"`
}

// jsonScalar holds a number or boolean as text, so "1" and 1 read the same.
type jsonScalar string

func (s *jsonScalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case string(data) == "null":
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = jsonScalar(strings.TrimSpace(text))
	default:
		*s = jsonScalar(data)
	}
	return nil
}

// unmarshalObject decodes an object entry. A field of the wrong type is left
// empty and reported; the rest of the entry is kept.
func unmarshalObject(data []byte, v any, what string, state *decodeState) error {
	err := json.Unmarshal(data, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		state.warn(WarnInvalidField, "%s field %s: cannot use %s, left empty", what, typeErr.Field, typeErr.Value)
		return nil
	}
	return err
}

// decodeState collects warnings and tracks the position being decoded.
type decodeState struct {
	week, day int
	warnings  []domain.DecodeWarning
}

func (s *decodeState) warn(code, format string, args ...any) {
	w := domain.DecodeWarning{Code: code, Week: s.week, Day: s.day, Message: fmt.Sprintf(format, args...)}
	s.warnings = append(s.warnings, w)
	log.Printf("WARN: plan decode: %s", w)
}

// DecodePlan implements PlanDecoder.
func (d *planDecoder) DecodePlan(raw []byte) (*domain.Plan, []domain.DecodeWarning, error) {
	var root rawPlan
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("decode plan payload: %w", err)
	}

	// 1. Required root sections
	var missing []string
	if isAbsent(root.Meta) {
		missing = append(missing, "meta")
	}
	if isAbsent(root.PeriodizationOverview) {
		missing = append(missing, "periodization_overview")
	}
	if isAbsent(root.Schedule) {
		missing = append(missing, "schedule")
	}
	if len(missing) > 0 {
		return nil, nil, &MalformedPlanError{Missing: missing}
	}

	state := &decodeState{}
	plan := &domain.Plan{Schedule: []domain.Week{}}

	// 2. Meta and periodization, best effort
	if err := json.Unmarshal(root.Meta, &plan.Meta); err != nil {
		state.warn(WarnInvalidField, "meta could not be decoded: %v", err)
	}
	if err := json.Unmarshal(root.PeriodizationOverview, &plan.PeriodizationOverview); err != nil {
		state.warn(WarnInvalidField, "periodization_overview could not be decoded: %v", err)
	}
	if len(plan.PeriodizationOverview.Phases) == 0 {
		state.warn(WarnInvalidField, "periodization_overview has no phases")
	}

	// 3. Schedule, in the order received
	var weeks []json.RawMessage
	if err := json.Unmarshal(root.Schedule, &weeks); err != nil {
		state.warn(WarnInvalidField, "schedule is not a list: %v", err)
		return plan, state.warnings, nil
	}
	prevNumber := 0
	for i, rw := range weeks {
		state.week, state.day = i+1, 0
		week, ok := decodeWeek(rw, state)
		if !ok {
			continue
		}
		if week.WeekNumber < 1 || week.WeekNumber <= prevNumber {
			state.warn(WarnWeekOrder, "week_number %d does not follow %d", week.WeekNumber, prevNumber)
		}
		prevNumber = week.WeekNumber
		plan.Schedule = append(plan.Schedule, week)
	}

	// day_index values are kept verbatim; a plan mixing both conventions is only flagged.
	state.week, state.day = 0, 0
	if zeroBased, oneBased := dayIndexConventions(plan.Schedule); zeroBased > 0 && oneBased > 0 {
		state.warn(WarnDayIndexConvention, "day_index is 0-based on %d day(s) and 1-based on %d day(s)", zeroBased, oneBased)
	}

	return plan, state.warnings, nil
}

var weekdayOffsets = map[string]int{
	"monday": 0, "tuesday": 1, "wednesday": 2, "thursday": 3,
	"friday": 4, "saturday": 5, "sunday": 6,
}

// dayIndexConventions counts days whose day_index reads as a 0-based or a
// 1-based position of their day_name within a Monday-first week.
func dayIndexConventions(weeks []domain.Week) (zeroBased, oneBased int) {
	for _, week := range weeks {
		for _, day := range week.Days {
			offset, ok := weekdayOffsets[strings.ToLower(day.DayName)]
			if !ok {
				continue
			}
			switch day.DayIndex {
			case offset:
				zeroBased++
			case offset + 1:
				oneBased++
			}
		}
	}
	return zeroBased, oneBased
}

func decodeWeek(data json.RawMessage, state *decodeState) (domain.Week, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		state.warn(WarnInvalidWeek, "week skipped: entry is not an object")
		return domain.Week{}, false
	}
	var rw rawWeek
	if err := unmarshalObject(trimmed, &rw, "week", state); err != nil {
		state.warn(WarnInvalidWeek, "week skipped: %v", err)
		return domain.Week{}, false
	}
	week := domain.Week{
		WeekNumber:  parseIntField("week_number", string(rw.WeekNumber), state),
		PhaseName:   rw.PhaseName,
		WeeklyFocus: rw.WeeklyFocus,
		Days:        make([]domain.Day, 0, len(rw.Days)),
	}
	for j, entry := range rw.Days {
		state.day = j + 1
		day, ok := decodeDay(entry, state)
		if !ok {
			continue
		}
		if day.ActivityCategory == domain.CategoryRun && len(day.WorkoutStructure) < minRunSegments {
			state.warn(WarnInsufficientSegments, "run %q has %d segment(s), expected at least %d",
				day.ActivityTitle, len(day.WorkoutStructure), minRunSegments)
		}
		week.Days = append(week.Days, day)
	}
	return week, true
}

// decodeDay normalizes either day representation into a domain.Day.
func decodeDay(data json.RawMessage, state *decodeState) (domain.Day, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		state.warn(WarnInvalidDay, "empty day entry skipped")
		return domain.Day{}, false
	}
	switch trimmed[0] {
	case '"':
		var flat string
		if err := json.Unmarshal(trimmed, &flat); err != nil {
			state.warn(WarnInvalidDay, "day string skipped: %v", err)
			return domain.Day{}, false
		}
		return decodeFlatDay(flat, state), true
	case '{':
		return decodeObjectDay(trimmed, state)
	default:
		state.warn(WarnInvalidDay, "day entry is neither a string nor an object")
		return domain.Day{}, false
	}
}

func decodeObjectDay(data []byte, state *decodeState) (domain.Day, bool) {
	var rd rawDay
	if err := unmarshalObject(data, &rd, "day", state); err != nil {
		state.warn(WarnInvalidDay, "day object skipped: %v", err)
		return domain.Day{}, false
	}
	day := domain.Day{
		DayName:                   rd.DayName,
		DayIndex:                  parseIntField("day_index", string(rd.DayIndex), state),
		IsRestDay:                 parseBoolField("is_rest_day", string(rd.IsRestDay), state),
		IsCompleted:               parseBoolField("is_completed", string(rd.IsCompleted), state),
		IsMissed:                  parseBoolField("is_missed", string(rd.IsMissed), state),
		MatchedActivityID:         rd.MatchedActivityID,
		ActivityCategory:          normalizeCategory(string(rd.ActivityCategory)),
		ActivityTitle:             rd.ActivityTitle,
		TotalEstimatedDurationMin: parseIntField("total_estimated_duration_min", string(rd.TotalEstimatedDurationMin), state),
		WorkoutStructure:          []domain.Segment{},
	}

	var fields map[string]json.RawMessage
	_ = json.Unmarshal(data, &fields) // already known to be a valid object
	for _, key := range segmentKeys {
		value, ok := fields[key]
		if !ok || isAbsent(value) {
			continue
		}
		day.WorkoutStructure = decodeSegmentValue(value, state)
		break
	}
	return day, true
}

// decodeSegmentValue accepts a list of segment objects or flattened tokens,
// or a whole flattened segments string.
func decodeSegmentValue(value json.RawMessage, state *decodeState) []domain.Segment {
	var flat string
	if err := json.Unmarshal(value, &flat); err == nil {
		return parseSegments(flat, state)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil {
		state.warn(WarnInvalidSegment, "workout structure is neither a list nor a string")
		return []domain.Segment{}
	}
	segments := make([]domain.Segment, 0, len(items))
	for _, item := range items {
		var token string
		if err := json.Unmarshal(item, &token); err == nil {
			if seg, ok := parseSegmentToken(token, state); ok {
				segments = append(segments, seg)
			} else {
				state.warn(WarnInvalidSegment, "segment %q skipped", token)
			}
			continue
		}
		var seg domain.Segment
		if err := json.Unmarshal(item, &seg); err != nil {
			state.warn(WarnInvalidSegment, "segment skipped: %v", err)
			continue
		}
		seg.SegmentType = domain.SegmentType(strings.ToUpper(strings.TrimSpace(string(seg.SegmentType))))
		seg.IntensityZone = clampZone(seg.IntensityZone, state)
		segments = append(segments, seg)
	}
	return segments
}

// decodeFlatDay parses
// day_name|day_index|is_rest_day|is_completed|activity_category|activity_title|total_duration_min|workout_segments
func decodeFlatDay(flat string, state *decodeState) domain.Day {
	parts := strings.SplitN(flat, flatFieldSeparator, flatDayFields)
	if len(parts) < flatDayFields {
		state.warn(WarnInvalidDay, "flattened day has %d field(s), expected %d", len(parts), flatDayFields)
	}
	field := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	day := domain.Day{
		DayName:          field(0),
		DayIndex:         parseIntField("day_index", field(1), state),
		IsRestDay:        parseBoolField("is_rest_day", field(2), state),
		IsCompleted:      parseBoolField("is_completed", field(3), state),
		ActivityCategory: normalizeCategory(field(4)),
		ActivityTitle:    field(5),
	}
	day.TotalEstimatedDurationMin = parseIntField("total_duration_min", field(6), state)
	if len(parts) == flatDayFields {
		day.WorkoutStructure = parseSegments(parts[7], state)
	} else {
		day.WorkoutStructure = []domain.Segment{}
	}
	return day
}

// parseSegments applies the segment string policy:
//   - empty: no segments
//   - no colon at all: not a segment list, dropped
//   - a colon but no "||": one segment, with a warning
//   - otherwise: one segment per "||" token
func parseSegments(s string, state *decodeState) []domain.Segment {
	s = strings.TrimSpace(s)
	segments := []domain.Segment{}
	if s == "" || !strings.Contains(s, segmentTypeSplitter) {
		return segments
	}
	if !strings.Contains(s, segmentSeparator) {
		state.warn(WarnMissingSegmentSeparator, "segments have no %q separator, parsed as a single segment", segmentSeparator)
		if seg, ok := parseSegmentToken(s, state); ok {
			segments = append(segments, seg)
		}
		return segments
	}
	for _, token := range strings.Split(s, segmentSeparator) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		seg, ok := parseSegmentToken(token, state)
		if !ok {
			state.warn(WarnInvalidSegment, "segment %q skipped", token)
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// parseSegmentToken parses "TYPE:description,value unit,Zone N". The
// description may itself contain commas, so duration and zone are taken
// from the right.
func parseSegmentToken(token string, state *decodeState) (domain.Segment, bool) {
	idx := strings.Index(token, segmentTypeSplitter)
	if idx < 0 {
		return domain.Segment{}, false
	}
	seg := domain.Segment{
		SegmentType: domain.SegmentType(strings.ToUpper(strings.TrimSpace(token[:idx]))),
	}
	parts := strings.Split(token[idx+1:], ",")

	if n := len(parts); n > 1 && isZoneToken(parts[n-1]) {
		seg.IntensityZone = clampZone(parseZone(parts[n-1]), state)
		parts = parts[:n-1]
	}
	if n := len(parts); n > 1 {
		if value, unit, ok := parseDuration(parts[n-1]); ok {
			seg.DurationValue, seg.DurationUnit = value, unit
			parts = parts[:n-1]
		}
	}
	seg.Description = strings.TrimSpace(strings.Join(parts, ","))
	return seg, true
}

func isZoneToken(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "zone") || (strings.HasPrefix(s, "z") && len(s) > 1 && s[1] >= '0' && s[1] <= '9')
}

func parseZone(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "zone")
	s = strings.TrimPrefix(s, "z")
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// parseDuration parses "5 min", "2.5 km" or "30min".
func parseDuration(s string) (float64, domain.DurationUnit, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	i := strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if i <= 0 {
		return 0, "", false
	}
	value, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, "", false
	}
	switch unit := strings.TrimSpace(s[i:]); unit {
	case "min", "mins", "minute", "minutes":
		return value, domain.UnitMinutes, true
	case "km", "kms", "kilometer", "kilometers":
		return value, domain.UnitKilometers, true
	default:
		return value, domain.DurationUnit(unit), true
	}
}

func clampZone(zone int, state *decodeState) int {
	if zone == 0 {
		return zone
	}
	if zone < minZone || zone > maxZone {
		state.warn(WarnZoneOutOfRange, "intensity zone %d clamped to %d-%d", zone, minZone, maxZone)
		return max(minZone, min(zone, maxZone))
	}
	return zone
}

func parseIntField(name, value string, state *decodeState) int {
	if value == "" {
		return 0
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int(math.Round(f))
	}
	state.warn(WarnInvalidField, "%s %q is not a number", name, value)
	return 0
}

func parseBoolField(name, value string, state *decodeState) bool {
	if value == "" {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		state.warn(WarnInvalidField, "%s %q is not a boolean", name, value)
		return false
	}
	return b
}

func normalizeCategory(s string) domain.ActivityCategory {
	return domain.ActivityCategory(strings.ToUpper(strings.TrimSpace(s)))
}

func isAbsent(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
