// Package http exposes the opening hours API.
//
// The router serves the following endpoints, all keyed by resource ID:
//   - GET /v1/resource/{id}/opening_hours?start_date=&end_date=: daily
//     opening hours as [{"date","times":[...]}]. Both dates are required and
//     may be relative ("today", "+2w", "-1m").
//   - GET /v1/resource/{id}/opening_hours.ics?start_date=&end_date=: the same
//     range as an iCalendar document.
//   - GET /v1/resource/{id}/is_open_now?timezone=: whether the resource is in
//     an open state right now, optionally with the matches in another zone.
//   - GET /v1/resource/{id}/date_periods_as_text: the denormalized hash and
//     text of the resource's periods.
//   - POST /v1/resource/{id}/copy_date_periods?target_resources=&replace=&date_periods=:
//     copies periods onto other resources.
//   - GET /healthz: liveness probe.
//
// Errors are JSON objects {"message","errors"}; validation failures answer
// 422, unknown resources 404 and malformed parameters 400.
package http
