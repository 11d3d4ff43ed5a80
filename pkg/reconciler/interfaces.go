/*
 * Copyright 2025 OpenPrinting.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

//go:generate mockgen -destination=mock_clock.go -package=reconciler github.com/zdohnal/cups-browsed/pkg/reconciler Clock

package reconciler

import "time"

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// NotificationState is what the reconciler needs to know about the
// notification channel: whether one exists. It decides the sentinel device
// URI and guards default-printer deletion.
type NotificationState interface {
	Subscribed() bool
}

// realClock implements Clock using the real time package.
type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// neverSubscribed is the NotificationState used when no notifier runs.
type neverSubscribed struct{}

func (neverSubscribed) Subscribed() bool { return false }
