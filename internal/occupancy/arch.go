package occupancy

import "fmt"

func maxBlocksPerMultiprocessor(prop *DeviceProp) (int, error) {
	switch prop.ComputeMajor {
	case 3:
		return 16, nil
	case 5, 6:
		return 32, nil
	case 7:
		if prop.ComputeMinor == 5 {
			return 16, nil
		}
		return 32, nil
	case 8:
		switch prop.ComputeMinor {
		case 0:
			return 32, nil
		case 9:
			return 24, nil
		default:
			return 16, nil
		}
	case 9, 10, 12:
		return 32, nil
	}
	return 0, fmt.Errorf("%w: sm_%d%d", ErrUnknownDevice, prop.ComputeMajor, prop.ComputeMinor)
}

func regAllocationGranularity(*DeviceProp) int {
	return 256
}

func regAllocationMaxPerThread(prop *DeviceProp) int {
	if prop.ComputeMajor == 3 && prop.ComputeMinor == 0 {
		return 63
	}
	return 255
}

// subPartitionsPerMultiprocessor is the number of warp schedulers that
// registers are split across.
func subPartitionsPerMultiprocessor(prop *DeviceProp) int {
	if prop.ComputeMajor == 6 && prop.ComputeMinor == 0 {
		return 2
	}
	return 4
}

func smemAllocationGranularity(prop *DeviceProp) int {
	if prop.ComputeMajor >= 8 {
		return 128
	}
	return 256
}

func divideRoundUp(x, y int) int {
	return (x + y - 1) / y
}

func roundUp(x, y int) int {
	return y * divideRoundUp(x, y)
}
