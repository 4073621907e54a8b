package model

import "time"

// Default map extent in world units. Both axes run from 0 to the extent.
const (
	DefaultMapWidth  = 8000
	DefaultMapHeight = 8000
)

// MarkerType is the tactical category of a marker
type MarkerType string

const (
	MarkerEnemy     MarkerType = "enemy"
	MarkerFriendly  MarkerType = "friendly"
	MarkerAttack    MarkerType = "attack"
	MarkerDefend    MarkerType = "defend"
	MarkerPickup    MarkerType = "pickup"
	MarkerDrop      MarkerType = "drop"
	MarkerMeet      MarkerType = "meet"
	MarkerInfantry  MarkerType = "infantry"
	MarkerArmor     MarkerType = "armor"
	MarkerAir       MarkerType = "air"
	MarkerNaval     MarkerType = "naval"
	MarkerObjective MarkerType = "objective"
	MarkerOther     MarkerType = "other"
)

var markerColors = map[MarkerType]string{
	MarkerEnemy:     "#FF0000",
	MarkerFriendly:  "#0066FF",
	MarkerAttack:    "#FF0000",
	MarkerDefend:    "#0066FF",
	MarkerPickup:    "#00FF00",
	MarkerDrop:      "#FF0000",
	MarkerMeet:      "#9933FF",
	MarkerInfantry:  "#00FF00",
	MarkerArmor:     "#FFAA00",
	MarkerAir:       "#66CCFF",
	MarkerNaval:     "#0066FF",
	MarkerObjective: "#FFFF00",
	MarkerOther:     "#808080",
}

// Color returns the display colour for the type. Unknown types render grey.
func (t MarkerType) Color() string {
	if c, ok := markerColors[t]; ok {
		return c
	}
	return markerColors[MarkerOther]
}

// Valid reports whether t is a known marker type
func (t MarkerType) Valid() bool {
	_, ok := markerColors[t]
	return ok
}

// MarkerTypes returns every known marker type
func MarkerTypes() []MarkerType {
	return []MarkerType{
		MarkerEnemy, MarkerFriendly, MarkerAttack, MarkerDefend, MarkerPickup,
		MarkerDrop, MarkerMeet, MarkerInfantry, MarkerArmor, MarkerAir,
		MarkerNaval, MarkerObjective, MarkerOther,
	}
}

// MarkerShape is the render hint for a marker
type MarkerShape string

const (
	ShapeCircle   MarkerShape = "circle"
	ShapeSquare   MarkerShape = "square"
	ShapeDiamond  MarkerShape = "diamond"
	ShapeTriangle MarkerShape = "triangle"
	ShapeArrow    MarkerShape = "arrow"
	ShapeStar     MarkerShape = "star"
	ShapePolygon  MarkerShape = "polygon"
)

// MarkerShapes returns every known marker shape
func MarkerShapes() []MarkerShape {
	return []MarkerShape{
		ShapeCircle, ShapeSquare, ShapeDiamond, ShapeTriangle,
		ShapeArrow, ShapeStar, ShapePolygon,
	}
}

// Marker is a point annotation on the shared map. Markers are created and
// deleted, never updated in place.
type Marker struct {
	ID        string      `json:"id" validate:"required,max=128"`
	Type      MarkerType  `json:"type" validate:"required,oneof=enemy friendly attack defend pickup drop meet infantry armor air naval objective other"`
	Shape     MarkerShape `json:"shape" validate:"required,oneof=circle square diamond triangle arrow star polygon"`
	X         float64     `json:"x" validate:"gte=0"`
	Y         float64     `json:"y" validate:"gte=0"`
	Color     string      `json:"color,omitempty" validate:"omitempty,hexcolor"`
	CreatedBy string      `json:"created_by" validate:"required,max=64"`
	Timestamp time.Time   `json:"timestamp"`
	Notes     string      `json:"notes,omitempty" validate:"max=1000"`
}
