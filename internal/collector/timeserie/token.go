package timeserie

import (
	"github.com/ALEYI17/InfraSight_occupancy/pkg/types"
)

// LaunchToTokens turns a launch with a known occupancy into the two points
// of a counter track: the value at kernel start and zero at kernel end.
func LaunchToTokens(e types.AnnotatedKernelLaunch) (begin, end *types.OccupancyToken) {
	if !e.Known {
		return nil, nil
	}
	start := int64(e.TimestampNs)
	begin = &types.OccupancyToken{
		Device:    e.DeviceId,
		Timestamp: start,
		Value:     e.Occupancy,
	}
	end = &types.OccupancyToken{
		Device:    e.DeviceId,
		Timestamp: start + int64(e.DurationNs),
		Value:     0,
	}
	return begin, end
}
