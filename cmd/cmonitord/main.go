package main

import (
	"time"

	surveillance "github.com/Iram04hack/network-management-system-sub001"
	"github.com/Iram04hack/network-management-system-sub001/pkg/kv"
	_ "github.com/Iram04hack/network-management-system-sub001/pkg/kv/consul"
	_ "github.com/Iram04hack/network-management-system-sub001/pkg/kv/etcd"
	"github.com/armon/go-metrics"
	mapsink "github.com/bakins/go-metrics-map"
	mmw "github.com/bakins/go-metrics-middleware"
	flag "github.com/ogier/pflag"
	log "github.com/sirupsen/logrus"
)

type metricsContext struct {
	sink    *mapsink.MapSink
	metrics *metrics.Metrics
	mmw     *mmw.Middleware
}

const defaultKVAddr = "http://localhost:4001"

func main() {
	var port uint
	var workers int
	var kvAddr, gns3Host, logLevel, statsd string
	var interval, probeTTL time.Duration
	var gns3Port int

	flag.UintVarP(&port, "port", "p", 18100, "listen port")
	flag.StringVarP(&kvAddr, "kv", "k", defaultKVAddr, "address of kv machine")
	flag.StringVarP(&gns3Host, "gns3", "g", "localhost", "host of the gns3 server")
	flag.IntVar(&gns3Port, "gns3-port", surveillance.GNS3Port, "port of the gns3 server")
	flag.DurationVarP(&interval, "interval", "i", surveillance.DefaultInterval, "monitor cycle interval")
	flag.DurationVar(&probeTTL, "probe-cache", 0, "probe cache ttl, 0 for the default")
	flag.IntVarP(&workers, "workers", "w", surveillance.DefaultWorkers, "concurrent probe workers")
	flag.StringVarP(&logLevel, "log-level", "l", "warn", "log level")
	flag.StringVarP(&statsd, "statsd", "s", "", "statsd address")
	flag.Parse()

	// Set up logger
	log.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
			"func":  "log.ParseLevel",
			"level": logLevel,
		}).Fatal("unable to set up logrus")
	}
	log.SetLevel(level)

	KV, err := kv.New(kvAddr)
	if err != nil {
		log.WithFields(log.Fields{
			"addr":  kvAddr,
			"error": err,
			"func":  "kv.New",
		}).Fatal("unable to connect to kv")
	}

	ctx := surveillance.NewContext(KV)
	client := surveillance.NewGNS3Client(gns3Host, gns3Port)

	// a kv stored interval takes precedence over the flag default
	if interval == surveillance.DefaultInterval {
		if v, err := ctx.GetConfig("monitor/interval"); err == nil {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				interval = d
			}
		}
	}

	// setup metrics
	sink := mapsink.New()
	fanout := metrics.FanoutSink{sink}

	if statsd != "" {
		ss, _ := metrics.NewStatsdSink(statsd)
		fanout = append(fanout, ss)
	}
	conf := metrics.DefaultConfig("cmonitord")
	conf.EnableHostname = false
	m, _ := metrics.New(conf, fanout)

	mctx := &metricsContext{
		sink:    sink,
		metrics: m,
		mmw:     mmw.New(m),
	}

	monitor := ctx.NewMonitor(client, surveillance.MonitorConfig{
		Interval: interval,
		Workers:  workers,
		CacheTTL: probeTTL,
		Metrics:  m,
	})
	monitor.Start()

	api := &apiContext{
		ctx:     ctx,
		repo:    client,
		monitor: monitor,
	}

	server := Run(port, api, mctx)
	// Block until the server is stopped
	<-server.StopChan()
	monitor.Stop()
}
