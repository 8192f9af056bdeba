// Package domain holds the write model of the assessment platform: the five
// aggregates (Session, LicensePool, Company, Product, Participant), the Event
// envelope with one typed payload per event type, and the codec between domain
// events and eventstore.StoredEvent.
//
// Aggregate state is never persisted; it is rebuilt by replaying the ordered
// event history through the aggregate's apply method. Commands validate
// preconditions against current state, build an event with version current+1,
// apply it, and buffer it as uncommitted. Callers must persist all uncommitted
// events before discarding the aggregate and must never apply an event twice.
//
// Precondition violations are reported as *Error values carrying only a
// descriptive message; infrastructure failures never originate here.
package domain
