package dispatch

import (
	"time"

	"ride-pool/internal/domain/cluster"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/metrics"
	"ride-pool/internal/ports"
)

// Trips are reused only when both endpoints sit within this many km of the
// cluster's endpoints.
const reuseRadiusKM = 3.0

// Params carries the dispatch knobs, already validated and converted by the
// config package.
type Params struct {
	Interval       time.Duration
	RoundDeadline  time.Duration
	MinClusterSize int
	MaxDetourKM    float64
	ProximityKM    float64
	TimeWindow     time.Duration
	PricePerSeat   float64
	DynamicPricing bool
	MergeScanLimit int
}

// dispatchService batches pending requests into shared trips. One instance
// runs one scheduler loop; multi-process deployments coordinate through the
// store (serializable transactions plus the driver CAS).
type dispatchService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	requests   ports.RequestRepository
	trips      ports.TripRepository
	bookings   ports.BookingRepository
	deliveries ports.DeliveryRepository
	events     ports.TripEventRepository
	drivers    ports.DriverRegistry
	notifier   ports.Notifier
	clock      ports.Clock
	retries    ports.RetryRegistry
	clusterer  *cluster.Clusterer
	metrics    *metrics.Metrics
	params     Params
}

// NewService creates a new instance of the DispatchService with the provided dependencies.
func NewService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	requests ports.RequestRepository,
	trips ports.TripRepository,
	bookings ports.BookingRepository,
	deliveries ports.DeliveryRepository,
	events ports.TripEventRepository,
	drivers ports.DriverRegistry,
	notifier ports.Notifier,
	clock ports.Clock,
	retries ports.RetryRegistry,
	clusterer *cluster.Clusterer,
	metrics *metrics.Metrics,
	params Params,
) ports.DispatchService {
	if params.MergeScanLimit <= 0 {
		params.MergeScanLimit = defaultMergeScanLimit
	}
	return &dispatchService{
		logger:     logger,
		uow:        uow,
		requests:   requests,
		trips:      trips,
		bookings:   bookings,
		deliveries: deliveries,
		events:     events,
		drivers:    drivers,
		notifier:   notifier,
		clock:      clock,
		retries:    retries,
		clusterer:  clusterer,
		metrics:    metrics,
		params:     params,
	}
}
