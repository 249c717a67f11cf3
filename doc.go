// Package chs provides a bounded-load, two-tier consistent-hashing task scheduler.
//
// Tasks are placed on a ring of virtual nodes by hashing their ID. Every task
// category owns its own ring that starts empty and grows lazily: when the
// category ring cannot serve a task, the general ring (holding every server)
// picks a server and that server is admitted into the category. Tasks with the
// same ID keep landing on the same server, and tasks of one category cluster on
// a bounded subset of the pool.
//
// # Quick Start
//
//	import "github.com/David-Tong/consistent-hashing-scheduler"
//
//	servers := []*chs.Server{
//	    chs.NewServer("10.0.0.1"),
//	    chs.NewServer("10.0.0.2"),
//	    chs.NewServer("10.0.0.3"),
//	}
//
//	cfg := chs.DefaultConfig()
//	sched, err := chs.NewScheduler(servers, &cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv, err := sched.ScheduleTask(chs.Task{ID: "000000000042", Category: chs.CategoryCompute, Weight: 3})
//
// # Load Bounds
//
// Two thresholds are recomputed on every ScheduleTask call, after the task
// weight has been added to the running load sum:
//
//	maxAssignedLoad    = (loadSum / serverCount) * ImbalanceFactor
//	boundLoadThreshold = floor((serverCount / numCategories) * BoundLoadThresholdFactor)
//
// A server is accepted only while its load is <= maxAssignedLoad. A category
// whose registry holds no more than boundLoadThreshold servers may still grow;
// beyond that it walks its own ring before falling back to the general ring.
//
// # Concurrency
//
// All Scheduler methods are safe for concurrent use. ScheduleTask calls run in
// parallel; AddServer and RemoveServer rebuild every ring and are serialized
// against in-flight scheduling.
//
// See cmd/chs for a complete driver.
package chs
