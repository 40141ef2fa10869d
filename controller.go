package persistcore

import (
	"context"
	"sync"

	"github.com/syssam/persistcore/dialect"
	"github.com/syssam/persistcore/dialect/family"
	sqldialect "github.com/syssam/persistcore/dialect/sql"
	"github.com/syssam/persistcore/deleter"
	"github.com/syssam/persistcore/exclusive"
	"github.com/syssam/persistcore/idgen"
	"github.com/syssam/persistcore/loader"
	"github.com/syssam/persistcore/objstore"
	"github.com/syssam/persistcore/recordcache"
	"github.com/syssam/persistcore/registry"
	"github.com/syssam/persistcore/saver"
	"github.com/syssam/persistcore/schemabind"
	"github.com/syssam/persistcore/valuecodec"
)

// Controller is the single explicit, non-singleton composition root of
// spec.md §2/§9: it owns one Registry, one database connection, and the
// process-wide Loader/Saver/Deleter/ExclusiveAllocator/IdGenerator/
// ValueCodec/ObjectStore/RecordCache instances wired against it. Callers
// construct one Controller per database; nothing here is package-level
// mutable state.
type Controller struct {
	cfg    *Config
	reg    *registry.Registry
	mapper family.Mapper
	drv    *sqldialect.StatsDriver
	stats  *sqldialect.QueryStats
	store  *objstore.ObjectStore
	cache  *recordcache.RecordCache
	ids    *idgen.IdGenerator
	codec  *valuecodec.Codec

	ld *loader.Loader
	sv *saver.Saver
	dl *deleter.Deleter
	al *exclusive.Allocator

	binding *schemabind.TableBinding

	warnMu       sync.Mutex
	cryptoWarned map[*registry.FieldSpec]bool
}

// Open builds a Controller: validates cfg, registers values with the
// Registry, resolves the dialect family and opens the connection pool,
// seeds the IdGenerator from the live database, wires every component,
// and binds the Registry against the live schema. A non-empty but non-
// fatal return ([]error alongside a usable *Controller) means some types
// failed schema binding (spec.md §7's SchemaMismatch: "caller may choose
// to continue"); a nil *Controller means Open failed fatally
// (ConfigurationError or a RegistrationError from the Registry).
//
// Open always wires the connection through dialect/sql.OpenWithStats
// (dialect/sql/stats.go), so every Controller carries query statistics
// and slow-query logging for free; QueryStats exposes a snapshot.
func Open(ctx context.Context, cfg *Config, values ...any) (*Controller, []error) {
	if cfg == nil {
		return nil, []error{NewConfigurationError("cfg", "must not be nil")}
	}
	if cfg.Logger == nil {
		cfg.Logger = NewSlogLogger(nil)
	}

	reg, err := registry.RegisterTypes(values...)
	if err != nil {
		return nil, []error{err}
	}

	fam, ok := family.ForDriverName(cfg.DriverName)
	if !ok {
		return nil, []error{ErrUnknownDialect}
	}
	mapper, ok := family.New(fam)
	if !ok {
		return nil, []error{ErrUnknownDialect}
	}

	statsOpts := []sqldialect.StatsOption{sqldialect.WithSlowQueryLog()}
	if cfg.SlowQueryThreshold > 0 {
		statsOpts = append(statsOpts, sqldialect.WithSlowThreshold(cfg.SlowQueryThreshold))
	}
	drv, stats, err := sqldialect.OpenWithStats(cfg.DriverName, cfg.DataSourceName, statsOpts...)
	if err != nil {
		return nil, []error{NewConfigurationError("DataSourceName", err.Error())}
	}
	if cfg.PoolSize > 0 {
		drv.DB().SetMaxOpenConns(cfg.PoolSize)
	}

	var crypto *valuecodec.Crypto
	if cfg.CryptPassword != "" {
		crypto, err = valuecodec.NewCrypto(cfg.CryptPassword, cfg.CryptSalt)
		if err != nil {
			drv.Close()
			return nil, []error{NewConfigurationError("cryptPassword", err.Error())}
		}
	}
	codec := valuecodec.New(crypto)

	store := objstore.New(reg)
	cache := recordcache.New()
	ids := idgen.New()
	for _, et := range reg.All() {
		if et.Parent != nil {
			continue // ids are seeded once per root; Chain()[0] covers descendants
		}
		if err := idgen.SeedFromDatabase(ctx, ids, drv.DB(), et, mapper); err != nil {
			drv.Close()
			return nil, []error{NewConfigurationError("DataSourceName", err.Error())}
		}
	}

	ld := loader.New(reg, mapper, codec, store, cache, cfg.DataHorizonPeriod.ApproxDuration())
	sv := saver.New(reg, mapper, codec, ids, cache, store)
	dl := deleter.New(reg, mapper, store, cache)
	al := exclusive.New(reg, mapper, ld, sv, store)

	c := &Controller{
		cfg: cfg, reg: reg, mapper: mapper, drv: drv, stats: stats,
		store: store, cache: cache, ids: ids, codec: codec,
		ld: ld, sv: sv, dl: dl, al: al,
		cryptoWarned: map[*registry.FieldSpec]bool{},
	}

	binding, bindErrs := schemabind.Bind(ctx, drv.DB(), fam, reg)
	c.binding = binding
	var remapped []error
	for _, e := range bindErrs {
		if me, ok := e.(*schemabind.MismatchError); ok {
			remapped = append(remapped, NewSchemaMismatchError(me.TypeName, me.Detail))
		} else {
			remapped = append(remapped, e)
		}
	}

	c.warnMissingCrypto(ctx)

	return c, remapped
}

// warnMissingCrypto emits a one-time CryptoWarning (spec.md §7's Crypto
// kind) per field marked IsEncrypted when no cryptPassword is configured.
func (c *Controller) warnMissingCrypto(ctx context.Context) {
	if c.codec.HasCrypto() {
		return
	}
	c.warnMu.Lock()
	defer c.warnMu.Unlock()
	for _, et := range c.reg.All() {
		for _, f := range et.Fields {
			if f.Kind != registry.Data || !f.IsEncrypted || c.cryptoWarned[f] {
				continue
			}
			c.cryptoWarned[f] = true
			w := NewCryptoWarning(et.Name, f.Name)
			c.cfg.Logger.Warn(ctx, w.Error())
		}
	}
}

// Close releases the underlying connection pool.
func (c *Controller) Close() error { return c.drv.Close() }

// TableBinding returns the SchemaBinder result from Open, so callers can
// check which EntityTypes bound successfully.
func (c *Controller) TableBinding() *schemabind.TableBinding { return c.binding }

// Driver returns the dialect.Driver this Controller operates over, for
// callers that need to start their own transaction across multiple
// Controller calls.
func (c *Controller) Driver() dialect.Driver { return c.drv }

// QueryStats returns a snapshot of the query/exec counters, durations,
// and slow-query count collected by the dialect/sql.StatsDriver every
// Controller call runs through (dialect/sql/stats.go).
func (c *Controller) QueryStats() sqldialect.StatsSnapshot { return c.stats.Stats() }

// Registry returns the bound Registry.
func (c *Controller) Registry() *registry.Registry { return c.reg }

// Synchronize delegates to the Loader (spec.md §4.5).
func (c *Controller) Synchronize(ctx context.Context, exclude ...*registry.EntityType) (*loader.Result, error) {
	return c.ld.Synchronize(ctx, c.drv, exclude...)
}

// LoadOnly delegates to the Loader (spec.md §4.5).
func (c *Controller) LoadOnly(ctx context.Context, et *registry.EntityType, whereClause string, maxCount int) (*loader.Result, error) {
	return c.ld.LoadOnly(ctx, c.drv, et, whereClause, maxCount)
}

// Reload delegates to the Loader (spec.md §4.5).
func (c *Controller) Reload(ctx context.Context, obj *objstore.Object) (*loader.Result, error) {
	return c.ld.Reload(ctx, c.drv, obj)
}

// Save delegates to the Saver (spec.md §4.6).
func (c *Controller) Save(ctx context.Context, obj *objstore.Object) error {
	return c.sv.Save(ctx, c.drv, obj)
}

// Delete delegates to the Deleter (spec.md §4.7).
func (c *Controller) Delete(ctx context.Context, obj *objstore.Object) error {
	return c.dl.Delete(ctx, c.drv, obj)
}

// Create allocates a new Object of et with the next generated id (spec.md
// §4.6's create path), running initFn on it and registering it in the
// ObjectStore; it stays unsaved until Save is called.
func (c *Controller) Create(et *registry.EntityType, initFn func(*objstore.Object)) *objstore.Object {
	id := c.ids.Next(et)
	return c.store.Create(et, id, initFn)
}

// AllocateExclusively delegates to the ExclusiveAllocator (spec.md §4.8).
func (c *Controller) AllocateExclusively(ctx context.Context, et *registry.EntityType, lockType, whereClause string, max int, updateFn func(*objstore.Object)) ([]*objstore.Object, error) {
	return c.al.AllocateExclusively(ctx, c.drv, et, lockType, whereClause, max, updateFn)
}

// AllocateOneExclusively delegates to the ExclusiveAllocator (spec.md §4.8).
func (c *Controller) AllocateOneExclusively(ctx context.Context, obj *objstore.Object, lockType string, updateFn func(*objstore.Object)) (bool, error) {
	return c.al.AllocateOneExclusively(ctx, c.drv, obj, lockType, updateFn)
}

// Release delegates to the ExclusiveAllocator (spec.md §4.8).
func (c *Controller) Release(ctx context.Context, obj *objstore.Object, lockType string, updateFn func(*objstore.Object)) error {
	return c.al.Release(ctx, c.drv, obj, lockType, updateFn)
}

// ReleaseMany delegates to the ExclusiveAllocator (spec.md §4.8).
func (c *Controller) ReleaseMany(ctx context.Context, objs []*objstore.Object, lockType string) error {
	return c.al.ReleaseMany(ctx, c.drv, objs, lockType)
}

// ComputeExclusively delegates to the ExclusiveAllocator (spec.md §4.8).
func (c *Controller) ComputeExclusively(ctx context.Context, et *registry.EntityType, lockType, whereClause string, updateFn func(*objstore.Object)) ([]*objstore.Object, error) {
	return c.al.ComputeExclusively(ctx, c.drv, et, lockType, whereClause, updateFn)
}

// ExclusiveCounters returns the ExclusiveAllocator's informative counters
// (spec.md §4.8).
func (c *Controller) ExclusiveCounters() exclusive.CounterSnapshot { return c.al.Counters().Snapshot() }

// FindByID delegates to the ObjectStore.
func (c *Controller) FindByID(et *registry.EntityType, id uint64) (*objstore.Object, bool) {
	return c.store.FindByID(et, id)
}

// All delegates to the ObjectStore.
func (c *Controller) All(et *registry.EntityType) []*objstore.Object { return c.store.All(et) }

// AllValid delegates to the ObjectStore.
func (c *Controller) AllValid(et *registry.EntityType) []*objstore.Object {
	return c.store.AllValid(et)
}

// FindAny delegates to the ObjectStore.
func (c *Controller) FindAny(et *registry.EntityType, pred func(*objstore.Object) bool) (*objstore.Object, bool) {
	return c.store.FindAny(et, pred)
}

// Count delegates to the ObjectStore.
func (c *Controller) Count(et *registry.EntityType, pred func(*objstore.Object) bool) int {
	return c.store.Count(et, pred)
}

// HasAny delegates to the ObjectStore.
func (c *Controller) HasAny(et *registry.EntityType, pred func(*objstore.Object) bool) bool {
	return c.store.HasAny(et, pred)
}

// Sort delegates to the ObjectStore.
func (c *Controller) Sort(objs []*objstore.Object, keyFn func(*objstore.Object) string) {
	c.store.Sort(objs, keyFn)
}

// Accumulation delegates to the ObjectStore.
func (c *Controller) Accumulation(owner *objstore.Object, fieldName string) []*objstore.Object {
	return c.store.Accumulation(owner, fieldName)
}
