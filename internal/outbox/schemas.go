package outbox

import "example.com/lazywalker/internal/events"

const walkCompletedSchema = `{
  "type": "object",
  "title": "WalkCompleted",
  "properties": {
    "walk_id": {"type": "string"},
    "user_id": {"type": "string"},
    "duration_min": {"type": "integer", "minimum": 1},
    "calendar_date": {"type": "string", "format": "date"},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["walk_id", "user_id", "duration_min", "calendar_date", "completed_at"],
  "additionalProperties": false
}`

const badgeGrantedSchema = `{
  "type": "object",
  "title": "BadgeGranted",
  "properties": {
    "grant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "badge_type": {"type": "string"},
    "milestone": {"type": "boolean"},
    "earned_at": {"type": "string", "format": "date-time"}
  },
  "required": ["grant_id", "user_id", "badge_type", "milestone", "earned_at"],
  "additionalProperties": false
}`

const kudosGrantedSchema = `{
  "type": "object",
  "title": "KudosGranted",
  "properties": {
    "grant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "kudos_type": {"type": "string"},
    "period": {"type": "string"},
    "title": {"type": "string"},
    "earned_at": {"type": "string", "format": "date-time"}
  },
  "required": ["grant_id", "user_id", "kudos_type", "title", "earned_at"],
  "additionalProperties": false
}`

var schemaCatalog = map[string]string{
	events.TypeWalkCompleted: walkCompletedSchema,
	events.TypeBadgeGranted:  badgeGrantedSchema,
	events.TypeKudosGranted:  kudosGrantedSchema,
}
