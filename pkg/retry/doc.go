// Package retry recovers images that fail to load.
//
// A Controller attaches one error listener and one load listener to every
// image it is given, at most once per element. When an image fails, the
// controller works out the image's original source (the src without any
// cache-busting query) and asks a Classifier whether that resource is
// confirmed absent:
//
//   - absent (HTTP 404): the image is styled as broken and never retried;
//   - anything else: the src is reassigned with a fresh ?t= query after
//     BaseDelay × attempt, up to MaxRetries attempts (1s, 2s, 3s by default).
//
// A successful load resets the attempt counter and clears the broken styling.
//
// # Classification
//
// The Classifier consults a NotFoundCache first and otherwise issues one
// existence probe through a Prober. Only a definite 404 is cached. Probe
// transport failures are inconclusive and classify as "not absent", so a
// flaky network never turns a transient failure into a permanent one.
//
// HTTPProber sends HEAD requests; S3Prober calls HeadObject for sites served
// straight from a bucket.
//
// # Threading
//
// Probes block, so they run on their own goroutines. Image listeners, probe
// results and backoff timers all go through an eventloop.Dispatcher, so
// element mutations happen only where the dispatcher runs them. The default
// eventloop.Serial never runs two of them at once.
//
// Pending retry timers are never cancelled. If an image loads while a retry is
// pending, the timer still fires and reassigns src, causing one redundant
// reload.
package retry
