// Package config loads HCL database configurations. A configuration declares
// labeled collection blocks, an optional metadatabase block and one database
// block naming which collections feed which stream:
//
//	metadatabase {
//	  driver = "sqlite"
//	  dsn    = env.RAMJET_METADATABASE
//	}
//
//	collection "tess_negative" {
//	  type           = "tess"
//	  label          = 0
//	  dataset_splits = [0, 1, 2, 3, 4, 5, 6, 7]
//	}
//
//	collection "signals" {
//	  type = "moa_generated"
//	}
//
//	database {
//	  batch_size          = 100
//	  training_standard   = ["tess_negative"]
//	  training_injectee   = "tess_negative"
//	  training_injectable = ["signals"]
//	}
//
// Expressions may read environment variables through env.NAME.
package config
