// Command vnixd is the boot glue of §6's entry-point contract: it builds the
// service registry, user registry, keystore, store and scheduler, loads
// configuration and an optional persisted store snapshot, registers the
// demo services and an initial task, then runs the scheduler until an
// interrupt requests a graceful stop.
package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vnix/kernel/dispatch"
	"vnix/kernel/driver"
	"vnix/kernel/envelope"
	"vnix/kernel/registry"
	"vnix/kernel/scheduler"
	"vnix/kernel/store"
	"vnix/kernel/unit"
	"vnix/kernel/user"
	"vnix/kernel/utils"
)

func main() {
	configPath := flag.String("config", "vnix.yaml", "path to the boot configuration")
	flag.Parse()

	logger := utils.DefaultLogger("vnixd")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Warn("no usable config file, falling back to defaults", utils.Err(err))
		cfg = defaultConfig()
	}

	users := user.NewRegistry()
	keystore := make(map[string]ed25519.PrivateKey)
	for _, name := range cfg.SeedUsers {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			logger.Fatal("failed to generate seed user key", utils.String("user", name), utils.Err(err))
		}
		if err := users.Register(name, pub); err != nil {
			logger.Fatal("failed to register seed user", utils.String("user", name), utils.Err(err))
		}
		keystore[name] = priv
	}

	services := registry.New()
	registerDemoServices(services, keystore, users)

	st := store.New()
	if cfg.StorePath != "" {
		if err := loadStore(st, cfg.StorePath); err != nil {
			logger.Warn("no store snapshot loaded", utils.String("path", cfg.StorePath), utils.Err(err))
		}
	}

	sched := scheduler.New(logger.Named("scheduler"))
	d := dispatch.New(services, users, sched, dispatch.DefaultConfig())
	handle := dispatch.NewHandle(d, sched, users, keystore)

	if len(cfg.SeedUsers) > 0 {
		// Ask the echo service for the registered service list, a "serv"
		// meta-protocol request dispatched through the normal Send path
		// rather than a hand-built task — exercises the boot glue exactly
		// the way any other client would.
		if _, err := handle.Send("echo", unit.Str("serv"), cfg.SeedUsers[0]); err != nil {
			logger.Warn("initial demo request failed", utils.Err(err))
		}
	}

	shutdown := utils.NewGracefulShutdown(5*time.Second, logger.Named("shutdown"))
	shutdown.Register(func() error {
		var err error
		if cfg.StorePath != "" {
			err = saveStore(st, cfg.StorePath)
		}
		sched.Stop()
		return err
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		_ = shutdown.Shutdown(context.Background())
	}()

	logger.Info("vnixd running",
		utils.String("session_id", utils.GenerateID()),
		utils.Int("seed_users", len(cfg.SeedUsers)))
	sched.Run(handle)
}

// registerDemoServices wires the always-on services the boot glue
// demonstrates: an echo service and a clock service backed by the driver
// package's SysClock (which is not breaker-wrapped).
func registerDemoServices(services *registry.Registry, keystore map[string]ed25519.PrivateKey, users *user.Registry) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err == nil {
		_ = users.Register("echo", pub)
		keystore["echo"] = priv
	}
	_ = services.Register("echo", "echoes the request payload back", func(msg envelope.Msg, info registry.Info, k registry.KernelHandle) registry.Computation {
		return &demoEchoComputation{msg: msg, k: k}
	})

	clock := driver.NewSysClock()
	clock.Start()
	cpub, cpriv, err := ed25519.GenerateKey(nil)
	if err == nil {
		_ = users.Register("clock", cpub)
		keystore["clock"] = cpriv
	}
	_ = services.Register("clock", "reports process uptime in seconds", func(msg envelope.Msg, info registry.Info, k registry.KernelHandle) registry.Computation {
		return &demoClockComputation{clock: clock, k: k}
	})
}

type demoEchoComputation struct {
	msg  envelope.Msg
	k    registry.KernelHandle
	done bool
}

func (c *demoEchoComputation) Poll() (bool, *envelope.Msg, error) {
	if c.done {
		return true, nil, nil
	}
	c.done = true
	reply, err := c.k.MakeEnvelope("echo", c.msg.Payload)
	if err != nil {
		return true, nil, err
	}
	return true, &reply, nil
}

type demoClockComputation struct {
	clock *driver.SysClock
	k     registry.KernelHandle
	done  bool
}

func (c *demoClockComputation) Poll() (bool, *envelope.Msg, error) {
	if c.done {
		return true, nil, nil
	}
	c.done = true
	reply, err := c.k.MakeEnvelope("clock", unit.NewUint(uint32(c.clock.Uptime(driver.Sec))))
	if err != nil {
		return true, nil, err
	}
	return true, &reply, nil
}

// loadStore and saveStore pick the brotli-compressed snapshot format for a
// ".br" path and the plain-text vnix.store format otherwise, so a deployment
// can opt into the domain stack's compressed checkpoint with nothing more
// than a config change.
func loadStore(st *store.Store, path string) error {
	if strings.HasSuffix(path, ".br") {
		return st.LoadFileCompressed(path)
	}
	return st.LoadFile(path)
}

func saveStore(st *store.Store, path string) error {
	if strings.HasSuffix(path, ".br") {
		return st.SaveFileCompressed(path)
	}
	return st.SaveFile(path)
}
