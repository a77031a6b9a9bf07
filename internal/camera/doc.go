// Package camera discovers video4linux devices, follows hotplug events over
// the udev netlink socket, and captures still frames through an external
// command such as ffmpeg.
package camera
