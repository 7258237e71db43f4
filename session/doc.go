// Package session owns the current-user Session Context.
//
// Holder is the single write authority: it logs users in and out and
// refreshes the user through an injected Fetcher. Engines only receive the
// observe-only view returned by Holder.View, so they can read and watch the
// user but never replace it.
//
// Persist the session across restarts with a Store (RedisStore ships here)
// and keep the user fresh with a cron driven Scheduler.
package session
