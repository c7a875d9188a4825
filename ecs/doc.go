// Package ecs attaches components to host entities and runs systems over them.
//
// Entities are host entity handles tracked by a World. Components are plain
// structs attached with Add and read with Get (optional) or Require (fails
// with ErrComponentMissing). Systems are structs whose pointer fields are
// injected per matching entity; the World runs them once per tick inside the
// transaction of each host world, through that world's task.Dispatcher.
package ecs
