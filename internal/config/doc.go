// Package config provides configuration parsing for the lazyimg tools.
//
// The configuration is stored in lazyimg.json next to the documentation
// project. Every field is optional; missing fields keep their defaults.
// LAZYIMG_* environment variables override file values and may come from a
// .env file.
//
// # Configuration File Structure
//
//	{
//	  "retry": {
//	    "maxRetries": 3,
//	    "baseDelay": "1s"
//	  },
//	  "probe": {
//	    "backend": "http",
//	    "timeout": "10s",
//	    "baseURL": "https://docs.example.com",
//	    "userAgent": "lazyimg"
//	  },
//	  "viewport": {
//	    "height": 800,
//	    "imageHeight": 300
//	  },
//	  "s3": {
//	    "bucket": "docs-site",
//	    "region": "eu-west-1",
//	    "prefix": "site/"
//	  },
//	  "serve": {
//	    "addr": ":8000",
//	    "root": "site",
//	    "metrics": true
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
//	    return err
//	}
package config
