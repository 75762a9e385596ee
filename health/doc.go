// Package health enforces agent concurrency ceilings and supervises
// instance liveness via heartbeats.
//
// Capacity is granted as slot tokens gated by per-type, per-tier, and global
// ceilings. Heartbeat supervision is timer-driven: a periodic tick accrues
// missed heartbeats and triggers bounded auto-restart or escalation.
package health
