package entities

// Shop represents a physical location owning departments and a ticket queue
type Shop struct {
	ID          int32   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Image       *string `json:"image,omitempty" db:"image"`
	Location    string  `json:"location" db:"location"`

	// AcceptingTickets is the administrative flag gating new ticket creation.
	AcceptingTickets bool `json:"accepting_tickets" db:"accepting_tickets"`
}

// Department represents a capacity-bounded resource pool within a shop.
// The two moving averages feed the wait-time estimator and are mutated only
// on ticket entry (expected) and exit (measured).
type Department struct {
	ID          int32  `json:"id" db:"id"`
	ShopID      int32  `json:"shop_id" db:"shop_id"`
	Description string `json:"description" db:"description"`
	Capacity    int    `json:"capacity" db:"capacity"`

	MAExpectedDuration float64 `json:"ma_expected_duration" db:"ma_expected_duration"`
	MAMeasuredDuration float64 `json:"ma_measured_duration" db:"ma_measured_duration"`
}

// visitOverheadMinutes models the fixed per-visit overhead (walking in,
// checkout) added on top of the averaged visit length.
const visitOverheadMinutes = 2.0

// Weight is the exponential moving average weight for this department.
// Larger departments see more visits per unit time, so each single visit
// should move the average less.
func (d *Department) Weight() float64 {
	return 1.0 / float64(d.Capacity+1)
}

// PushExpected folds a customer's declared visit length (minutes) into the
// expected-duration moving average.
func (d *Department) PushExpected(estMinutes float64) {
	w := d.Weight()
	d.MAExpectedDuration = d.MAExpectedDuration*(1-w) + estMinutes*w
}

// PushMeasured folds an observed visit length (minutes) into the
// measured-duration moving average.
func (d *Department) PushMeasured(minutes float64) {
	w := d.Weight()
	d.MAMeasuredDuration = d.MAMeasuredDuration*(1-w) + minutes*w
}

// CombinedVisitMinutes blends the self-reported and measured averages into
// the expected length of one visit, including fixed overhead.
func (d *Department) CombinedVisitMinutes() float64 {
	return d.MAExpectedDuration*0.35 + d.MAMeasuredDuration*0.65 + visitOverheadMinutes
}

// SlotDelayMinutes is the expected delay one occupied slot adds for the next
// customer: the combined visit length spread over the department's capacity.
func (d *Department) SlotDelayMinutes() float64 {
	if d.Capacity <= 0 {
		return d.CombinedVisitMinutes()
	}
	return d.CombinedVisitMinutes() / float64(d.Capacity)
}
