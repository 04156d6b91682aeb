package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVehicleStatus_IsValid(t *testing.T) {
	for _, s := range []VehicleStatus{StatusWaiting, StatusDispatched, StatusEnroute, StatusArrived} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, VehicleStatus("completed").IsValid())
	assert.False(t, VehicleStatus("").IsValid())
}

func TestVehicleStatus_IsMoving(t *testing.T) {
	assert.False(t, StatusWaiting.IsMoving())
	assert.True(t, StatusDispatched.IsMoving())
	assert.True(t, StatusEnroute.IsMoving())
	assert.False(t, StatusArrived.IsMoving())
}

func TestSnapshot_Vehicle(t *testing.T) {
	snap := Snapshot{Vehicles: []Vehicle{{ID: "amb-1"}, {ID: "amb-2", CallSign: "Bravo-45"}}}

	v, ok := snap.Vehicle("amb-2")
	assert.True(t, ok)
	assert.Equal(t, "Bravo-45", v.CallSign)

	_, ok = snap.Vehicle("amb-9")
	assert.False(t, ok)
}
