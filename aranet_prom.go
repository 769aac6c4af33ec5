package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	log "github.com/sirupsen/logrus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"

	"github.com/alepar/aranet/aranet"
	"github.com/alepar/aranet/aranet/blegatt"
	"github.com/alepar/aranet/config"
	"github.com/alepar/aranet/export"
	"github.com/alepar/aranet/metrics"
)

// CLI args, each overriding the config file when set
var (
	configPath   = flag.String("config", "", "path to a YAML config file")
	listenAddr   = flag.String("listen-address", "", "The address to listen on for HTTP requests.")
	readInterval = flag.Duration("read-int", 0, "time interval between advertisement scans")
	scanDuration = flag.Duration("scan-dur", 0, "scan duration")
	retries      = flag.Int("retries", 0, "max number of tries in case of BLE errors")
	printVersion = flag.Bool("version", false, "print version and exit")
)

const exporterName = "aranet_exporter"

// metrics to expose to Prometheus
var gauges = metrics.NewGauges()

func init() {
	if err := gauges.Register(prometheus.DefaultRegisterer); err != nil {
		panic(err)
	}

	// Add Go module build info.
	prometheus.MustRegister(collectors.NewBuildInfoCollector())
	prometheus.MustRegister(versioncollector.NewCollector(exporterName))

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

// sinks receive every advertised reading besides the gauges.
type sinks struct {
	mqtt   *export.MQTTPublisher
	influx *export.InfluxWriter
}

func (s *sinks) Close() {
	if s.mqtt != nil {
		_ = s.mqtt.Close()
	}
	if s.influx != nil {
		s.influx.Close()
	}
}

func main() {
	flag.Parse()
	if *printVersion {
		fmt.Println(version.Print(exporterName))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}
	applyFlags(cfg)
	if err := cfg.Log.ApplyLogging(); err != nil {
		log.Fatalf("%s", err)
	}

	out, err := openSinks(cfg)
	if err != nil {
		log.Fatalf("%s", err)
	}
	defer out.Close()

	go func() {
		// Expose the registered metrics via HTTP.
		http.Handle("/metrics", promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{
				// Opt into OpenMetrics to support exemplars.
				EnableOpenMetrics: true,
			},
		))
		log.Panic(http.ListenAndServe(cfg.Exporter.ListenAddress, nil))
	}()
	log.Infof("%s %s listening on %s", exporterName, version.Version, cfg.Exporter.ListenAddress)

	for {
		scanAndReceive(cfg, out)
		time.Sleep(cfg.Exporter.ReadInterval)
	}
}

func applyFlags(cfg *config.Config) {
	if *listenAddr != "" {
		cfg.Exporter.ListenAddress = *listenAddr
	}
	if *readInterval > 0 {
		cfg.Exporter.ReadInterval = *readInterval
	}
	if *scanDuration > 0 {
		cfg.BLE.ScanDuration = *scanDuration
	}
	if *retries > 0 {
		cfg.BLE.Retries = *retries
	}
}

func openSinks(cfg *config.Config) (*sinks, error) {
	out := &sinks{}
	if cfg.MQTT.Enabled() {
		pub, err := export.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		out.mqtt = pub
	}
	if cfg.Influx.Enabled() {
		out.influx = export.NewInfluxWriter(cfg.Influx)
	}
	return out, nil
}

func deviceName(cfg *config.Config, adv aranet.Advertisement) string {
	if name, ok := cfg.DeviceName(adv.Address); ok {
		return name
	}
	if adv.Name != "" {
		return adv.Name
	}
	return adv.Address
}

func scanAndReceive(cfg *config.Config, out *sinks) {
	// open BLE
	d, err := linux.NewDevice()
	if err != nil {
		log.Errorf("failed to open ble: %s", err)
		return
	}
	ble.SetDefaultDevice(d)
	defer ble.Stop()

	// Scan
	scanner := blegatt.BleScanner{
		ScanDuration: cfg.BLE.ScanDuration,
		Retries:      cfg.BLE.Retries,
	}
	ads, err := scanner.Find(context.Background())
	if err != nil {
		log.Errorf("failed to scan for sensors: %s", err)
		return
	}

	for addr, adv := range ads {
		name := deviceName(cfg, adv)
		log.Printf("Found: %s addr %s rssi %d", name, addr, adv.RSSI)

		if !gauges.ObserveAdvertisement(name, adv) {
			log.Warnf("%s does not advertise readings, enable smart home integrations on the device", name)
			continue
		}

		valuesAsJson, err := json.Marshal(adv.Readings)
		if err == nil {
			log.Printf("Received: %s", valuesAsJson)
		} else {
			log.Printf("Received: <marshall error: %s>", err)
		}

		if out.mqtt != nil {
			if err := out.mqtt.PublishReading(name, *adv.Readings); err != nil {
				log.Errorf("failed to publish %s to mqtt: %s", name, err)
			}
		}
		if out.influx != nil {
			if err := out.influx.WriteReading(context.Background(), name, *adv.Readings, adv.SeenAt); err != nil {
				log.Errorf("failed to write %s to influxdb: %s", name, err)
			}
		}
	}
}
