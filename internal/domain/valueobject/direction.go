package valueobject

import "fmt"

// Direction is the flow of funds relative to the user.
type Direction struct {
	value string
}

var (
	DirectionInbound  = Direction{value: "INBOUND"}
	DirectionOutbound = Direction{value: "OUTBOUND"}
)

// DirectionFromString reconstructs a Direction from its string representation.
func DirectionFromString(s string) (Direction, error) {
	switch s {
	case "INBOUND":
		return DirectionInbound, nil
	case "OUTBOUND":
		return DirectionOutbound, nil
	default:
		return Direction{}, fmt.Errorf("invalid direction: %s", s)
	}
}

func (d Direction) String() string         { return d.value }
func (d Direction) IsZero() bool           { return d.value == "" }
func (d Direction) Equal(o Direction) bool { return d.value == o.value }
