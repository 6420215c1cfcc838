// Package config provides configuration parsing for vroute servers.
//
// The configuration is stored in vroute.json next to the route manifest.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "address": ":8080",
//	    "shutdownTimeout": "30s",
//	    "maxMessageSize": 65536,
//	    "allowedOrigins": ["https://app.example.com"]
//	  },
//	  "routes": {
//	    "manifest": "routes.json",
//	    "reloadInterval": "5s"
//	  },
//	  "metrics": {"enabled": true, "path": "/metrics"},
//	  "tracing": {"enabled": false},
//	  "log": {"level": "info", "format": "text"}
//	}
//
// Durations are Go duration strings ("500ms", "30s"). A manifest may be read
// from S3 instead of the filesystem:
//
//	"routes": {"s3": {"bucket": "my-bucket", "key": "routes.json", "region": "eu-west-1"}}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.Server.Address)
package config
