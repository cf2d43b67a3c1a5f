// Package kernel wires the shopkart services to their infrastructure.
package kernel

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	appgraphql "github.com/shashiranjanraj/shopkart/app/graphql"
	"github.com/shashiranjanraj/shopkart/app/jobs"
	"github.com/shashiranjanraj/shopkart/app/listeners"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/routes"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/audit"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
	"github.com/shashiranjanraj/shopkart/pkg/router"
	"github.com/shashiranjanraj/shopkart/pkg/sse"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
	"github.com/shashiranjanraj/shopkart/pkg/workerpool"
	"github.com/shashiranjanraj/shopkart/pkg/ws"
)

// Kernel holds every long-lived component of a running process.
type Kernel struct {
	DB    *gorm.DB
	Store *repositories.Store

	Identity  *services.IdentityService
	Catalog   *services.CatalogService
	Pricing   *services.PricingService
	Orders    *services.OrderService
	Reviews   *services.ReviewService
	Dashboard *services.DashboardService

	Queue   *queue.Manager
	Bus     *event.Bus
	Hub     *ws.Hub
	Streams *sse.Broker
	Audit   audit.Sink
	Disk    storage.Disk

	pool *workerpool.Pool
}

// Options overrides infrastructure for New. Zero fields get in-process
// defaults: a memory queue, a no-op audit sink and synchronous listeners.
type Options struct {
	Disk       storage.Disk
	Audit      audit.Sink
	Queue      *queue.Manager
	EventPool  *workerpool.Pool
	FailedJobs queue.FailedStore
}

// New assembles the services over db.
func New(db *gorm.DB, o Options) (*Kernel, error) {
	if o.Disk == nil {
		return nil, fmt.Errorf("kernel: a storage disk is required")
	}
	if o.Audit == nil {
		o.Audit = audit.Nop{}
	}
	if o.Queue == nil {
		o.Queue = queue.New(queue.NewMemoryDriver(1000))
	}
	if o.FailedJobs != nil {
		o.Queue.SetFailedStore(o.FailedJobs)
	}

	k := &Kernel{
		DB:      db,
		Store:   repositories.NewStore(db),
		Queue:   o.Queue,
		Bus:     event.NewBus(o.EventPool),
		Hub:     ws.NewHub(),
		Streams: sse.NewBroker(),
		Audit:   o.Audit,
		Disk:    o.Disk,
		pool:    o.EventPool,
	}
	k.Identity = services.NewIdentityService(k.Store)
	k.Catalog = services.NewCatalogService(k.Store, k.Disk)
	k.Pricing = services.NewPricingService(k.Store)
	k.Orders = services.NewOrderService(k.Store, k.Pricing, k.Bus)
	k.Reviews = services.NewReviewService(k.Store, k.Bus)
	k.Dashboard = services.NewDashboardService(k.Store)

	jobs.Register(k.Queue, k.Reviews)
	listeners.Register(k.Bus, listeners.Deps{
		Push:    listeners.Fanout{k.Hub, k.Streams},
		Audit:   k.Audit,
		Queue:   k.Queue,
		OwnerOf: k.shopOwner,
	})
	return k, nil
}

func (k *Kernel) shopOwner(ctx context.Context, shopID string) (string, error) {
	shop, err := k.Store.Shops().FindByID(ctx, shopID)
	if err != nil {
		return "", err
	}
	return shop.OwnerID, nil
}

// Boot connects to the configured database, Redis, storage disk and audit
// sink and returns the assembled kernel. Redis is optional unless the
// queue driver needs it.
func Boot(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("kernel: config: %w", err)
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	if err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, catalog cache disabled", "error", err)
	}

	disk, err := storage.FromConfig(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := audit.Open(ctx, config.AuditMongoURI(), config.AuditMongoDB())
	if err != nil {
		return nil, err
	}

	var driver queue.Driver
	switch config.QueueDriver() {
	case "redis":
		if cache.RDB == nil {
			return nil, fmt.Errorf("kernel: QUEUE_DRIVER=redis but redis is unreachable")
		}
		driver = queue.NewRedisDriver(cache.RDB)
	default:
		driver = queue.NewMemoryDriver(1000)
	}
	failed, err := queue.NewDBFailedStore(database.DB)
	if err != nil {
		return nil, err
	}

	return New(database.DB, Options{
		Disk:       disk,
		Audit:      sink,
		Queue:      queue.New(driver),
		EventPool:  workerpool.New("events", 8),
		FailedJobs: failed,
	})
}

// Ping reports whether the database answers.
func (k *Kernel) Ping(ctx context.Context) error {
	sqlDB, err := k.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Routes mounts the API. It needs no live connections, so route:list can
// call it on an unbooted kernel.
func (k *Kernel) Routes(r *router.Router) {
	schema, err := appgraphql.NewCatalogSchema(k.Catalog)
	if err != nil {
		panic(fmt.Sprintf("kernel: build catalog schema: %v", err))
	}
	routes.Register(r, routes.Deps{
		Identity:  k.Identity,
		Catalog:   k.Catalog,
		Orders:    k.Orders,
		Reviews:   k.Reviews,
		Dashboard: k.Dashboard,
		Hub:       k.Hub,
		Streams:   k.Streams,
		Schema:    schema,
		Health:    k.Ping,
	})
}

// Close drains listeners and flushes the audit sink.
func (k *Kernel) Close() {
	if k.pool != nil {
		k.pool.Shutdown()
	}
	k.Audit.Close()
	if cache.RDB != nil {
		_ = cache.RDB.Close()
	}
}
