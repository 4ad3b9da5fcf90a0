package types

const (
	EVENT_GPU_KERNEL_LAUNCH = 1
)

const (
	LoaderKernelLaunch = "kernel_launch"
)

const (
	BATCH_OCCUPANCY_WINDOW = "gpu_occupancy_window"
	BATCH_OCCUPANCY_SERIES = "gpu_occupancy_series"

	EVENT_TYPE_WINDOW = "GPU_OCCUPANCY_WINDOW"
	EVENT_TYPE_TOKEN  = "occupancy_counter"
)
