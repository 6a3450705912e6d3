// Package injectfactory builds the objects behind remoting destinations
// through a dependency injection container.
//
// A host loads destination definitions and hands each one to
// Factory.CreateFactoryInstance. The resulting FactoryInstance records the
// destination's source class, scope and attribute id; its objects are
// produced by the Injector given to NewFactory:
//
//	classes := injectfactory.NewClassRegistry()
//	c := vessel.New()
//	_ = injectfactory.Provide(c, classes, "OrderService", NewOrderService)
//
//	f, err := injectfactory.NewFactory(injectfactory.NewVesselInjector(c),
//	    injectfactory.WithClassRegistry(classes),
//	    injectfactory.WithApplicationContext(injectfactory.NewAttributes()),
//	    injectfactory.WithBroker(broker.NewMemory()),
//	)
//
//	inst, err := f.CreateFactoryInstance(ctx, "orders", config.Map{
//	    "source": "OrderService",
//	    "scope":  "application",
//	})
//	svc, err := f.Lookup(ctx, inst)
//
// Application scoped objects live in the host's application context under
// their attribute id, one per id. Session scoped objects live in the
// session attached with WithSession. Request scoped objects are built on
// every lookup.
package injectfactory
