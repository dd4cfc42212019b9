// Package config loads javacontext settings from a TOML file and the
// environment.
//
// The file is looked up at the path given on the command line, then at
// $JAVACONTEXT_CONFIG, then at ~/.javacontext/config.toml. Every key is
// optional:
//
//	[storage]
//	db_path = "~/.javacontext/indices"
//
//	[indexer]
//	workers = 8
//	include = ["**/*.java", "**/*.class"]
//	exclude = ["**/build/**"]
//	include_tests = true
//	watch = false
//	debounce_ms = 200
//
//	[search]
//	workers = 8
//	cache_size = 128
//	wait_policy = "force_immediate"
//
//	[eval]
//	package_name = ""
//	imports = ["java.util.*"]
//	class_name_prefix = "CodeSnippet_"
//	encoding = ""
//	include_running_vm_bootclasspath = false
//	decoded_cache_size = 64
//
// JAVACONTEXT_DB_PATH overrides storage.db_path and JAVACONTEXT_WORKERS
// overrides both worker counts.
package config
