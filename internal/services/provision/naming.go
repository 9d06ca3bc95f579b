// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package provision

import "strings"

// slug lower-cases s and replaces spaces with hyphens.
func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

// CourseGrantName is the role shared by all interns of a course.
func CourseGrantName(university, course string) string {
	if university == "" {
		return course + " Intern"
	}
	return university + "-" + course + " Intern"
}

// GroupName is the channel group holding a course's channels.
func GroupName(university, course string) string {
	if university == "" {
		return course
	}
	return university + " - " + course
}

// ChannelPrefix is the name suffix shared by a course's channels.
func ChannelPrefix(university, course string) string {
	if university == "" {
		return slug(course)
	}
	return strings.ToLower(university) + "-" + slug(course)
}

// AnnouncementChannelName is the read-only channel of a course.
func AnnouncementChannelName(university, course string) string {
	return "announcements-" + ChannelPrefix(university, course)
}

// DiscussionChannelName is the open channel of a course.
func DiscussionChannelName(university, course string) string {
	return "discussions-" + ChannelPrefix(university, course)
}

// BatchGrantName is the role of one batch.
func BatchGrantName(university, batch string) string {
	if university == "" {
		return batch
	}
	return university + "-" + batch
}

// BatchChannelName is the private channel of one batch.
func BatchChannelName(university, batch string) string {
	if university == "" {
		return slug(batch) + "-official"
	}
	return strings.ToLower(university) + "-" + slug(batch) + "-official"
}

func label(university, name string) string {
	if university == "" {
		return name
	}
	return university + " - " + name
}
