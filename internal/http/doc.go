// Package http exposes the Secret Nick API over chi.
//
// Participants authenticate with the userCode query parameter; rooms are
// joined with the roomCode (invitation code) query parameter.
//
//   - POST /api/rooms: creates a room and its admin. Body:
//     {"room":{...},"adminUser":{...}}. Response: {"room","userCode"}.
//   - GET /api/rooms?roomCode= or ?userCode=: room details.
//   - PATCH /api/rooms?userCode=: partial room update, admin only.
//   - POST /api/rooms/draw?userCode=: assigns gift recipients and closes the room.
//   - GET /api/users?userCode=, GET /api/users/{id}?userCode=: participants as seen
//     by the caller. Contact details and wishes are hidden unless the caller is the
//     admin, the participant itself, or the participant's gift giver.
//   - POST /api/users?roomCode=: joins a room.
//   - DELETE /api/users/{id}?userCode=: removes a participant, admin only.
//   - GET /health and GET /metrics.
//
// Failures are rendered as a problem document whose errors map is keyed by field.
package http
