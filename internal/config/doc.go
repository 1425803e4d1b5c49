// ABOUTME: Configuration package for the drum tools
// ABOUTME: YAML file with defaults for server, discovery, preview and kit options
// Package config loads the optional YAML configuration shared by the export
// service and the terminal editor. Missing keys keep the values from
// Default.
//
// Example:
//
//	server:
//	  port: 8930
//	kit:
//	  fx: delay
//	  fx_active: true
package config
