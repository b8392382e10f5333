package sim

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

// newCarPlan returns home -car- parking -walk- work -car- home.
func newCarPlan() *Plan {
	return &Plan{Elements: []PlanElement{
		NewActivity("home", "l1", orb.Point{}),
		&Leg{Mode: ModeCar},
		NewActivity(ParkingActivityType, "l2", orb.Point{}),
		&Leg{Mode: ModeWalk},
		NewActivity("work", "l2", orb.Point{}),
		&Leg{Mode: ModeCar},
		NewActivity("home", "l1", orb.Point{}),
	}}
}

func TestPlan_CarLegIndices(t *testing.T) {
	p := newCarPlan()
	assert.Equal(t, 1, p.FirstCarLegIndex())
	assert.Equal(t, 5, p.LastCarLegIndex())
	assert.Equal(t, 5, p.NextCarLegIndex(1))
	assert.Equal(t, -1, p.NextCarLegIndex(5))
	assert.Equal(t, 1, p.PreviousCarLegIndex(5))
	assert.Equal(t, -1, p.PreviousCarLegIndex(1))
}

func TestPlan_ElementAccessors(t *testing.T) {
	p := newCarPlan()
	assert.NotNil(t, p.ActivityAt(0))
	assert.Nil(t, p.ActivityAt(1))
	assert.NotNil(t, p.LegAt(1))
	assert.Nil(t, p.LegAt(-1))
	assert.Nil(t, p.LegAt(99))
}

func TestPlan_Validate(t *testing.T) {
	assert.NoError(t, newCarPlan().Validate())
	assert.Error(t, (&Plan{}).Validate())
	assert.Error(t, (&Plan{Elements: []PlanElement{&Leg{}}}).Validate())
	assert.Error(t, (&Plan{Elements: []PlanElement{NewActivity("a", "l", orb.Point{}), &Leg{}}}).Validate())
	assert.Error(t, (&Plan{Elements: []PlanElement{NewActivity("a", "l", orb.Point{}), NewActivity("b", "l", orb.Point{})}}).Validate())
}

func TestPopulation_AddAndSorted(t *testing.T) {
	pop := NewPopulation()
	assert.NoError(t, pop.Add(&Person{ID: "b"}))
	assert.NoError(t, pop.Add(&Person{ID: "a"}))
	assert.Error(t, pop.Add(&Person{ID: "a"}))
	assert.Error(t, pop.Add(&Person{}))

	persons := pop.Persons()
	assert.Equal(t, 2, pop.Len())
	assert.Equal(t, PersonID("a"), persons[0].ID)
	assert.Equal(t, PersonID("b"), persons[1].ID)
	assert.Nil(t, pop.Get("zzz"))
}

func TestPerson_SelectedPlan(t *testing.T) {
	p := &Person{ID: "p"}
	assert.Nil(t, p.SelectedPlan())
	p.Plans = []*Plan{newCarPlan()}
	assert.NotNil(t, p.SelectedPlan())
}
