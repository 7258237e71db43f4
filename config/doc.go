// Package config loads process settings from the environment and serves the
// feature-flag and configuration lookups engines read through
// core.ConfigProvider.
//
// Settings come from environment variables, optionally seeded from .env
// files. Flags come from a YAML document:
//
//	values:
//	  search_page_size: 20
//	flags:
//	  new_feature: true
//	  assist_replies:
//	    rule: user.admin || user.country == "DE"
//
// A rule is an expression evaluated against the current user's attributes
// (user.*) and the document values (values.*). WatchFile reloads the
// document on change and notifies watchers.
package config
