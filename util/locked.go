/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Tue Feb  6 09:31:02 2024 mstenber
 * Last modified: Tue Feb  6 09:44:19 2024 mstenber
 * Edit time:     7 min
 *
 */

package util

import "sync"

// MutexLocked is a mutex with convenience feature (just defer
// x.Locked()()).
type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}
