package travel

import (
	"context"

	"github.com/aretw0/voiceflow/pkg/registry"
)

// DestinationArgs carries the chosen destination.
type DestinationArgs struct {
	Destination string `mapstructure:"destination"`
}

// DestinationResult is merged into the session results.
type DestinationResult struct {
	Destination string `mapstructure:"destination"`
}

// DatesArgs carries the requested stay.
type DatesArgs struct {
	CheckIn  string `mapstructure:"check_in"`
	CheckOut string `mapstructure:"check_out"`
}

// DatesResult is merged into the session results.
type DatesResult struct {
	CheckIn  string `mapstructure:"check_in"`
	CheckOut string `mapstructure:"check_out"`
}

// ActivitiesArgs carries the selected activities.
type ActivitiesArgs struct {
	Activities []string `mapstructure:"activities"`
}

// ActivitiesResult is merged into the session results.
type ActivitiesResult struct {
	Activities []string `mapstructure:"activities"`
}

// SelectDestination records the destination.
func SelectDestination(_ context.Context, args DestinationArgs) (DestinationResult, error) {
	return DestinationResult{Destination: args.Destination}, nil
}

// RecordDates records the stay. The dates are already checked against
// the date format; the model confirms them with the caller.
func RecordDates(_ context.Context, args DatesArgs) (DatesResult, error) {
	return DatesResult{CheckIn: args.CheckIn, CheckOut: args.CheckOut}, nil
}

// RecordActivities records the activity preferences.
func RecordActivities(_ context.Context, args ActivitiesArgs) (ActivitiesResult, error) {
	return ActivitiesResult{Activities: args.Activities}, nil
}

// Register adds the travel handlers to reg.
func Register(reg *registry.Registry) {
	reg.Register("select_destination", registry.Typed(SelectDestination))
	reg.Register("record_dates", registry.Typed(RecordDates))
	reg.Register("record_activities", registry.Typed(RecordActivities))
}
