// Package hardware models the physical actuation layer: devices, the
// actors they expose, and the drivers that discover them.
//
// The device registry is built once at startup from driver discovery
// and is immutable afterwards. There is no device CRUD: changing the
// hardware means changing configuration and restarting, which keeps
// every read lock-free.
//
// The timed relay actor implements the one concurrency-sensitive
// primitive in the system: switch a relay, then switch it back after a
// delay, with the revert timer owned by the actor rather than the
// request that started it. A newer trigger on the same actor always
// wins; triggers on different actors never contend.
package hardware
